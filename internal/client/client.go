// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a client for the zag HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/series"
	"github.com/Voxer/zag-sub000/internal/store"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client handles communication with a zag server.
type Client struct {
	baseURL string
	http    *http.Client
	// stream has no overall timeout; live channels stay open indefinitely.
	stream *http.Client
}

// Options holds configuration for creating a new client.
type Options struct {
	URL       string            // Server URL, e.g. http://localhost:8080
	Timeout   time.Duration     // Request timeout for non-streaming calls
	Transport http.RoundTripper // Base transport (optional)
}

// New creates a new client from options.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := otelhttp.NewTransport(base)
	return &Client{
		baseURL: strings.TrimSuffix(opts.URL, "/"),
		http:    &http.Client{Timeout: timeout, Transport: transport},
		stream:  &http.Client{Transport: transport},
	}
}

// URL returns the server URL the client talks to.
func (c *Client) URL() string { return c.baseURL }

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// do executes a request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// statusError turns an error response into an error, keeping the server's
// message when the body carries one.
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if m := gjson.GetBytes(body, "error"); m.Type == gjson.String {
		msg = m.Str
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("API error (status %d): %s", status, msg)
}

func metricPath(mkey string) string {
	return "/api/metrics/" + url.PathEscape(mkey)
}

// FetchPoints returns the points of key with start <= ts < end.
func (c *Client) FetchPoints(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))
	q.Set("delta", strconv.FormatInt(key.Delta, 10))
	body, err := c.do(ctx, http.MethodGet, c.endpoint(metricPath(key.MKey()), q), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s [%d, %d): %w", key, start, end, err)
	}
	pts, err := series.DecodePoints(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return pts, nil
}

// Ingest appends points to key on the server.
func (c *Client) Ingest(ctx context.Context, key series.Key, pts []series.Point) error {
	body, err := series.EncodePoints(pts)
	if err != nil {
		return fmt.Errorf("failed to encode points: %w", err)
	}
	q := url.Values{}
	q.Set("delta", strconv.FormatInt(key.Delta, 10))
	if _, err := c.do(ctx, http.MethodPost, c.endpoint(metricPath(key.MKey()), q), body); err != nil {
		return fmt.Errorf("ingest %s: %w", key, err)
	}
	return nil
}

// KeyType looks up the type of a key's base key.
func (c *Client) KeyType(ctx context.Context, key string) (series.Type, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint("/api/keys/"+url.PathEscape(key), nil), nil)
	if err != nil {
		return "", fmt.Errorf("type of %q: %w", key, err)
	}
	return series.ParseType(gjson.GetBytes(body, "type").String())
}

// Keys lists the server's keys starting with prefix.
func (c *Client) Keys(ctx context.Context, prefix string) ([]store.KeyInfo, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	body, err := c.do(ctx, http.MethodGet, c.endpoint("/api/keys", q), nil)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var keys []store.KeyInfo
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys: %w", err)
	}
	return keys, nil
}

// Dashboard loads one dashboard.
func (c *Client) Dashboard(ctx context.Context, id string) (*dashboard.Dashboard, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint("/api/dashboards/"+url.PathEscape(id), nil), nil)
	if err != nil {
		return nil, fmt.Errorf("dashboard %q: %w", id, err)
	}
	var d dashboard.Dashboard
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard: %w", err)
	}
	return &d, nil
}

// Dashboards lists every dashboard.
func (c *Client) Dashboards(ctx context.Context) ([]dashboard.Dashboard, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint("/api/dashboards", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	var ds []dashboard.Dashboard
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse dashboards: %w", err)
	}
	return ds, nil
}

// PutDashboard creates or replaces d.
func (c *Client) PutDashboard(ctx context.Context, d dashboard.Dashboard) error {
	if _, err := c.do(ctx, http.MethodPut, c.endpoint("/api/dashboards/"+url.PathEscape(d.ID), nil), d); err != nil {
		return fmt.Errorf("save dashboard %q: %w", d.ID, err)
	}
	return nil
}

// DeleteDashboard removes a dashboard.
func (c *Client) DeleteDashboard(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.endpoint("/api/dashboards/"+url.PathEscape(id), nil), nil); err != nil {
		return fmt.Errorf("delete dashboard %q: %w", id, err)
	}
	return nil
}

// channelUpdate mirrors the server's channel update body.
type channelUpdate struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// UpdateChannel changes the live subscriptions of channel id.
func (c *Client) UpdateChannel(ctx context.Context, id string, add, remove []string) error {
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	endpoint := c.endpoint("/api/channels/"+url.PathEscape(id), nil)
	if _, err := c.do(ctx, http.MethodPost, endpoint, channelUpdate{Add: add, Remove: remove}); err != nil {
		return fmt.Errorf("update channel %q: %w", id, err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, c.endpoint("/healthz", nil), nil); err != nil {
		return fmt.Errorf("zag server not available: %w", err)
	}
	return nil
}
