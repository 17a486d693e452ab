// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package dashboard defines saved dashboards: named lists of charts.
package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid dashboard")

// Dashboard is a saved set of charts.
type Dashboard struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Graphs []Graph `json:"graphs" yaml:"graphs"`
}

// Graph is one chart on a dashboard.
type Graph struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Keys     []string `json:"keys" yaml:"keys"`
	Renderer string   `json:"renderer,omitempty" yaml:"renderer,omitempty"`
}

// Validate checks that the dashboard can be rendered.
func (d Dashboard) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.ContainsAny(d.ID, "/ ") {
		return fmt.Errorf("%w: id %q must not contain '/' or spaces", ErrInvalid, d.ID)
	}
	for i, g := range d.Graphs {
		if len(g.Keys) == 0 {
			return fmt.Errorf("%w: %q graph %d has no keys", ErrInvalid, d.ID, i)
		}
		for _, k := range g.Keys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("%w: %q graph %d has an empty key", ErrInvalid, d.ID, i)
			}
		}
		switch g.Renderer {
		case "", "line", "area", "heat":
		default:
			return fmt.Errorf("%w: %q graph %d: unknown renderer %q", ErrInvalid, d.ID, i, g.Renderer)
		}
	}
	return nil
}

// DisplayTitle returns the graph title, falling back to its keys.
func (g Graph) DisplayTitle() string {
	if g.Title != "" {
		return g.Title
	}
	return strings.Join(g.Keys, ", ")
}
