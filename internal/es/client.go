// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package es reads metric series out of Elasticsearch.
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures a Client.
type Options struct {
	Addresses []string
	Index     string        // Index pattern holding the metric documents
	Timeout   time.Duration // Per-request deadline; searches also pass it to Elasticsearch
}

// Client runs the store's queries against one index pattern.
type Client struct {
	es      *elasticsearch.Client
	index   string
	timeout time.Duration
}

// New creates a client. Requests are traced with otelhttp.
func New(opts Options) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{es: es, index: opts.Index, timeout: timeout}, nil
}

// Index returns the index pattern
func (c *Client) Index() string {
	return c.index
}

// Ping checks if Elasticsearch is reachable
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping ES: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ES ping failed: %s", res.Status())
	}
	return nil
}

// FieldCaps implements Executor
func (c *Client) FieldCaps(ctx context.Context, index, fields string) (*FieldCapsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.FieldCaps(
		c.es.FieldCaps.WithContext(ctx),
		c.es.FieldCaps.WithIndex(index),
		c.es.FieldCaps.WithFields(fields),
		c.es.FieldCaps.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get field caps: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("field caps failed: %s - %s", res.Status(), bytes.TrimSpace(body))
	}

	var caps FieldCapsResponse
	if err := json.NewDecoder(res.Body).Decode(&caps); err != nil {
		return nil, fmt.Errorf("failed to decode field caps: %w", err)
	}
	return &caps, nil
}

// Search implements Executor. Only aggregations are read, so no hits are
// returned. The caller owns the response body.
func (c *Client) Search(ctx context.Context, index string, body []byte) (*SearchResponse, error) {
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithSize(0),
		c.es.Search.WithTimeout(c.timeout),
		c.es.Search.WithRequestCache(true),
		c.es.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	return &SearchResponse{
		Body:    res.Body,
		Status:  res.Status(),
		IsError: res.IsError(),
	}, nil
}
