// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Voxer/zag-sub000/internal/series"
)

// PointHandler receives each live point with the key it was published under.
type PointHandler func(key string, p series.Point)

// Channel is an open live stream. Subscriptions made before the server's
// init event are queued and sent once it arrives.
type Channel struct {
	client  *Client
	id      string
	handler PointHandler
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	ready  bool
	add    map[string]struct{}
	remove map[string]struct{}
	err    error
}

// OpenChannel opens a live channel at delta. handler is called from the
// channel's reader goroutine.
func (c *Client) OpenChannel(ctx context.Context, delta int64, handler PointHandler) (*Channel, error) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)

	q := url.Values{}
	q.Set("delta", strconv.FormatInt(delta, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/channels/"+id, q), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("open channel: %w", statusError(resp.StatusCode, body))
	}

	ch := &Channel{
		client:  c,
		id:      id,
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
		add:     make(map[string]struct{}),
		remove:  make(map[string]struct{}),
	}
	go ch.read(ctx, resp.Body)
	return ch, nil
}

// ID returns the channel id.
func (ch *Channel) ID() string { return ch.id }

// Done is closed when the stream ends.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

// Err returns why the stream ended, or nil while it is open or after Close.
func (ch *Channel) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.err
}

// Subscribe follows keys. Before init the keys are queued.
func (ch *Channel) Subscribe(ctx context.Context, keys ...string) error {
	ch.mu.Lock()
	if !ch.ready {
		for _, k := range keys {
			ch.add[k] = struct{}{}
			delete(ch.remove, k)
		}
		ch.mu.Unlock()
		return nil
	}
	ch.mu.Unlock()
	return ch.client.UpdateChannel(ctx, ch.id, keys, nil)
}

// Unsubscribe stops following keys. Before init the removal is queued.
func (ch *Channel) Unsubscribe(ctx context.Context, keys ...string) error {
	ch.mu.Lock()
	if !ch.ready {
		for _, k := range keys {
			delete(ch.add, k)
			ch.remove[k] = struct{}{}
		}
		ch.mu.Unlock()
		return nil
	}
	ch.mu.Unlock()
	return ch.client.UpdateChannel(ctx, ch.id, nil, keys)
}

// Close ends the stream and waits for the reader to stop.
func (ch *Channel) Close() {
	ch.cancel()
	<-ch.done
}

func (ch *Channel) read(ctx context.Context, body io.ReadCloser) {
	defer close(ch.done)
	defer body.Close()

	var event string
	var data strings.Builder
	r := bufio.NewReader(body)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			ch.finish(ctx, err)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if err := ch.dispatch(ctx, event, data.String()); err != nil {
				ch.finish(ctx, err)
				return
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

func (ch *Channel) dispatch(ctx context.Context, event, data string) error {
	switch event {
	case "init":
		return ch.flush(ctx)
	case "point":
		key, p, err := series.DecodeLive([]byte(data))
		if err != nil {
			return nil
		}
		if ch.handler != nil {
			ch.handler(key, p)
		}
	}
	return nil
}

// flush marks the channel ready and sends the queued subscriptions.
func (ch *Channel) flush(ctx context.Context) error {
	ch.mu.Lock()
	ch.ready = true
	add := setKeys(ch.add)
	remove := setKeys(ch.remove)
	ch.add = make(map[string]struct{})
	ch.remove = make(map[string]struct{})
	ch.mu.Unlock()
	return ch.client.UpdateChannel(ctx, ch.id, add, remove)
}

func (ch *Channel) finish(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, io.EOF) {
		err = errors.New("live channel closed by server")
	}
	ch.mu.Lock()
	ch.err = err
	ch.mu.Unlock()
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
