// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package axis

import "sync"

type group struct {
	axis *Bounded
	refs int
}

// Registry shares X intervals between charts that use the same sync key.
// Intervals are reference counted and dropped when the last chart releases
// them. Y intervals are never shared and do not go through the registry.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*group)}
}

// Acquire returns the interval for syncKey, creating it over initial when
// absent. An empty syncKey always gets a fresh, unshared interval.
func (r *Registry) Acquire(syncKey string, initial Range) *Bounded {
	if syncKey == "" {
		return NewBounded(initial)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[syncKey]
	if !ok {
		g = &group{axis: NewBounded(initial)}
		r.groups[syncKey] = g
	}
	g.refs++
	return g.axis
}

// Release drops one reference to syncKey.
func (r *Registry) Release(syncKey string) {
	if syncKey == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[syncKey]
	if !ok {
		return
	}
	g.refs--
	if g.refs <= 0 {
		delete(r.groups, syncKey)
	}
}

// Refs returns the reference count for syncKey.
func (r *Registry) Refs(syncKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[syncKey]; ok {
		return g.refs
	}
	return 0
}
