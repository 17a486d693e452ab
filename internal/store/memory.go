// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/series"
)

type seriesID struct {
	base  string
	delta int64
	llq   bool
}

func idOf(key series.Key) seriesID {
	return seriesID{base: key.Base, delta: key.Delta, llq: key.IsLLQ()}
}

// Memory is an in-process Store and Dashboards. Each series is a slice kept
// sorted by timestamp.
type Memory struct {
	mu         sync.RWMutex
	series     map[seriesID][]series.Point
	types      map[string]series.Type
	dashboards map[string]dashboard.Dashboard
}

// NewMemory returns an empty memory store.
func NewMemory() *Memory {
	return &Memory{
		series:     make(map[seriesID][]series.Point),
		types:      make(map[string]series.Type),
		dashboards: make(map[string]dashboard.Dashboard),
	}
}

func (m *Memory) Range(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.types[key.Base]; !ok {
		return nil, fmt.Errorf("key %q: %w", key.Base, ErrNotFound)
	}
	pts := m.series[idOf(key)]
	lo := sort.Search(len(pts), func(i int) bool { return pts[i].Timestamp() >= start })
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Timestamp() >= end })
	out := make([]series.Point, hi-lo)
	copy(out, pts[lo:hi])
	return out, nil
}

func (m *Memory) Append(ctx context.Context, key series.Key, pts []series.Point) error {
	if err := CheckAppend(key, pts); err != nil {
		return err
	}
	typ, ok := TypeOf(key, pts)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if known, exists := m.types[key.Base]; exists && known != typ {
		return fmt.Errorf("%w: %q is a %s, not a %s", ErrTypeMismatch, key.Base, known, typ)
	}
	m.types[key.Base] = typ

	id := idOf(key)
	cur := m.series[id]
	for _, p := range pts {
		ts := p.Timestamp()
		i := sort.Search(len(cur), func(i int) bool { return cur[i].Timestamp() >= ts })
		switch {
		case i < len(cur) && cur[i].Timestamp() == ts:
			cur[i] = p
		case i == len(cur):
			cur = append(cur, p)
		default:
			cur = append(cur, nil)
			copy(cur[i+1:], cur[i:])
			cur[i] = p
		}
	}
	m.series[id] = cur
	return nil
}

func (m *Memory) KeyType(ctx context.Context, base string) (series.Type, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[base]
	if !ok {
		return "", fmt.Errorf("key %q: %w", base, ErrNotFound)
	}
	return t, nil
}

func (m *Memory) Keys(ctx context.Context, prefix string) ([]KeyInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]KeyInfo, 0, len(m.types))
	for k, t := range m.types {
		if strings.HasPrefix(k, prefix) {
			out = append(out, KeyInfo{Key: k, Type: t})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) List(ctx context.Context) ([]dashboard.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]dashboard.Dashboard, 0, len(m.dashboards))
	for _, d := range m.dashboards {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (*dashboard.Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dashboards[id]
	if !ok {
		return nil, fmt.Errorf("dashboard %q: %w", id, ErrNotFound)
	}
	return &d, nil
}

func (m *Memory) Put(ctx context.Context, d dashboard.Dashboard) error {
	if err := d.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboards[d.ID] = d
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dashboards[id]; !ok {
		return fmt.Errorf("dashboard %q: %w", id, ErrNotFound)
	}
	delete(m.dashboards, id)
	return nil
}

// Replace swaps every dashboard for ds. It is used when a dashboards file
// is reloaded.
func (m *Memory) Replace(ds []dashboard.Dashboard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dashboards = make(map[string]dashboard.Dashboard, len(ds))
	for _, d := range ds {
		m.dashboards[d.ID] = d
	}
}
