// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/series"
)

// ErrChannelNotFound is returned when updating a channel that is not open.
var ErrChannelNotFound = errors.New("channel not found")

// Channel is one open live stream. It receives encoded point events for the
// keys it subscribed to at its delta.
type Channel struct {
	id     string
	delta  int64
	events chan []byte
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	subs map[string]struct{}
}

// ID returns the channel id.
func (c *Channel) ID() string { return c.id }

// Events delivers encoded live events.
func (c *Channel) Events() <-chan []byte { return c.events }

// Done is closed when the channel is closed or replaced by a reconnect.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Channel) subscribed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[id]
	return ok
}

// Subscriptions returns the live keys the channel follows.
func (c *Channel) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for k := range c.subs {
		out = append(out, k)
	}
	return out
}

// liveKey is the identity points are published under: the base key, or
// base@llq for llq points. Field subkeys collapse onto the base key since
// every field travels in the same point.
func liveKey(key series.Key) string {
	if key.IsLLQ() {
		return key.Base + "@" + series.SubkeyLLQ
	}
	return key.Base
}

// Hub routes published points to subscribed channels. Slow consumers lose
// points instead of blocking publishers.
type Hub struct {
	buffer  int
	log     logrus.FieldLogger
	metrics *metrics

	mu       sync.Mutex
	channels map[string]*Channel
}

// NewHub creates a hub whose channels queue up to buffer events.
func NewHub(buffer int, m *metrics, log logrus.FieldLogger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{buffer: buffer, log: log, metrics: m, channels: make(map[string]*Channel)}
}

// Open registers a channel. An existing channel with the same id is closed
// and replaced.
func (h *Hub) Open(id string, delta int64) *Channel {
	c := &Channel{
		id:     id,
		delta:  delta,
		events: make(chan []byte, h.buffer),
		done:   make(chan struct{}),
		subs:   make(map[string]struct{}),
	}
	h.mu.Lock()
	old := h.channels[id]
	h.channels[id] = c
	h.mu.Unlock()
	if old != nil {
		h.log.WithField("channel", id).Debug("replacing live channel")
		old.close()
	}
	h.metrics.channelsOpen.Inc()
	return c
}

// Close unregisters c if it is still the channel for its id.
func (h *Hub) Close(c *Channel) {
	h.mu.Lock()
	if h.channels[c.id] == c {
		delete(h.channels, c.id)
	}
	h.mu.Unlock()
	c.close()
	h.metrics.channelsOpen.Dec()
}

// Update changes a channel's subscriptions. Keys are mkeys; field subkeys
// subscribe to their base key.
func (h *Hub) Update(id string, add, remove []string) error {
	h.mu.Lock()
	c := h.channels[id]
	h.mu.Unlock()
	if c == nil {
		return ErrChannelNotFound
	}

	resolve := func(mkeys []string) ([]string, error) {
		out := make([]string, 0, len(mkeys))
		for _, mkey := range mkeys {
			key, err := series.ParseKey(mkey, c.delta)
			if err != nil {
				return nil, err
			}
			out = append(out, liveKey(key))
		}
		return out, nil
	}
	adds, err := resolve(add)
	if err != nil {
		return err
	}
	removes, err := resolve(remove)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range adds {
		c.subs[k] = struct{}{}
	}
	for _, k := range removes {
		delete(c.subs, k)
	}
	return nil
}

// Publish sends p to every channel at key's delta that follows key. It
// returns the number of channels the point was queued on.
func (h *Hub) Publish(key series.Key, p series.Point) int {
	id := liveKey(key)
	h.mu.Lock()
	targets := make([]*Channel, 0, len(h.channels))
	for _, c := range h.channels {
		if c.delta == key.Delta && c.subscribed(id) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return 0
	}

	event, err := series.EncodeLive(id, p)
	if err != nil {
		h.log.WithError(err).WithField("key", id).Warn("failed to encode live point")
		return 0
	}
	sent := 0
	for _, c := range targets {
		select {
		case c.events <- event:
			sent++
			h.metrics.livePoints.Inc()
		default:
			h.metrics.liveDropped.Inc()
			h.log.WithFields(logrus.Fields{"channel": c.id, "key": id}).Debug("dropping live point for slow channel")
		}
	}
	return sent
}

// Len returns the number of open channels.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}
