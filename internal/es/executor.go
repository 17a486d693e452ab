// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// FieldCapsResponse represents the relevant parts of a field_caps API response
type FieldCapsResponse struct {
	Fields map[string]map[string]FieldCapsInfo `json:"fields"`
}

// FieldCapsInfo contains field capability information
type FieldCapsInfo struct {
	Type             string `json:"type"`
	Aggregatable     bool   `json:"aggregatable"`
	TimeSeriesMetric string `json:"time_series_metric,omitempty"`
}

// SearchResponse represents a raw search response body
type SearchResponse struct {
	Body    io.ReadCloser
	Status  string
	IsError bool
}

// Executor defines the Elasticsearch operations the store needs
type Executor interface {
	// FieldCaps returns field capabilities for the given index pattern and fields filter
	FieldCaps(ctx context.Context, index, fields string) (*FieldCapsResponse, error)

	// Search executes a search query and returns the raw response
	Search(ctx context.Context, index string, body []byte) (*SearchResponse, error)

	// Index returns the index pattern to query
	Index() string
}

// QueryError is a failed search with the reason Elasticsearch gave.
type QueryError struct {
	Status string
	Reason string
	Query  []byte
}

func (e *QueryError) Error() string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, e.Query, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(e.Query)
	}
	return fmt.Sprintf("search failed: %s: %s\n\nQuery:\n%s", e.Status, e.Reason, pretty.String())
}

// newQueryError extracts the most specific reason from an error body.
func newQueryError(status string, body, query []byte) *QueryError {
	reason := string(bytes.TrimSpace(body))
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.root_cause.0.reason", "error.reason", "error"} {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String {
				reason = r.Str
				break
			}
		}
	}
	const maxReason = 512
	if len(reason) > maxReason {
		reason = reason[:maxReason] + "..."
	}
	return &QueryError{Status: status, Reason: reason, Query: query}
}
