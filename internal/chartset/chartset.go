// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package chartset owns the charts on screen and switches between single
// key, multi key and dashboard layouts.
package chartset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/series"
)

// Mode is what the chart set is showing.
type Mode int

const (
	ModeGraph Mode = iota
	ModeDashboard
)

func (m Mode) String() string {
	if m == ModeDashboard {
		return "dashboard"
	}
	return "graph"
}

// Layout is how the charts are arranged.
type Layout int

const (
	LayoutNone Layout = iota
	// LayoutOne shows a single counter key.
	LayoutOne
	// LayoutHistogram splits one histogram key into count, percentiles and heat map.
	LayoutHistogram
	// LayoutMany overlays several keys on one chart.
	LayoutMany
	// LayoutDashboard shows the graphs of a saved dashboard.
	LayoutDashboard
)

func (l Layout) String() string {
	switch l {
	case LayoutOne:
		return "one"
	case LayoutHistogram:
		return "histogram"
	case LayoutMany:
		return "many"
	case LayoutDashboard:
		return "dashboard"
	}
	return "none"
}

// ErrSuperseded is returned by a switch whose result was dropped because a
// newer switch started after it.
var ErrSuperseded = errors.New("chart set switch superseded")

// Chart is the part of a chart the set manages.
type Chart interface {
	Destroy()
}

// Spec describes a chart to build.
type Spec struct {
	Title    string
	Keys     []string
	Renderer string
	SyncKey  string
}

// Factory builds charts.
type Factory interface {
	NewChart(spec Spec) (Chart, error)
}

// Committer is implemented by factories whose NewChart and Destroy queue
// slow side effects. Commit runs after every switch, once the set's lock
// has been released.
type Committer interface {
	Commit()
}

// TypeResolver looks up the type of a base key.
type TypeResolver interface {
	KeyType(ctx context.Context, key string) (series.Type, error)
}

// DashboardSource loads saved dashboards.
type DashboardSource interface {
	Dashboard(ctx context.Context, id string) (*dashboard.Dashboard, error)
}

// State is a snapshot of the chart set.
type State struct {
	Mode      Mode
	Layout    Layout
	Keys      []string
	Dashboard string
	Charts    int
}

// ChartSet switches between layouts. Every switch bumps a clock; results of
// asynchronous lookups that come back after a newer switch are dropped with
// ErrSuperseded, so the most recent request always wins. Switching destroys
// all charts before building the new ones.
type ChartSet struct {
	types      TypeResolver
	dashboards DashboardSource
	factory    Factory
	log        logrus.FieldLogger

	mu        sync.Mutex
	clock     uint64
	mode      Mode
	layout    Layout
	keys      []string
	dashboard string
	charts    []Chart
}

// New creates an empty chart set.
func New(types TypeResolver, dashboards DashboardSource, factory Factory, log logrus.FieldLogger) *ChartSet {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChartSet{types: types, dashboards: dashboards, factory: factory, log: log}
}

// State returns a snapshot of the current mode, layout and keys.
func (s *ChartSet) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Mode:      s.mode,
		Layout:    s.layout,
		Keys:      append([]string(nil), s.keys...),
		Dashboard: s.dashboard,
		Charts:    len(s.charts),
	}
}

// Charts returns the current charts.
func (s *ChartSet) Charts() []Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chart(nil), s.charts...)
}

func (s *ChartSet) tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock++
	return s.clock
}

func (s *ChartSet) commit() {
	if c, ok := s.factory.(Committer); ok {
		c.Commit()
	}
}

// GraphOne shows a single key. The key's type decides the layout: counters
// get one chart, histograms are split into several synced charts. If the
// type lookup fails the current state is kept and the error returned.
func (s *ChartSet) GraphOne(ctx context.Context, key string) error {
	token := s.tick()
	defer s.commit()
	return s.graphOne(ctx, token, key)
}

func (s *ChartSet) graphOne(ctx context.Context, token uint64, key string) error {
	base := baseKey(key)
	typ, err := s.types.KeyType(ctx, base)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.clock {
		s.log.WithField("key", key).Debug("dropping stale type lookup")
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("failed to look up type of %q: %w", key, err)
	}

	layout := LayoutOne
	specs := []Spec{{Title: key, Keys: []string{key}, SyncKey: syncGraph}}
	if typ == series.TypeHistogram && key == base {
		layout = LayoutHistogram
		specs = histogramSpecs(key)
	}
	return s.applyLocked(ModeGraph, layout, []string{key}, "", specs)
}

const syncGraph = "graph"

func histogramSpecs(key string) []Spec {
	return []Spec{
		{Title: key + " count", Keys: []string{key + "@count"}, SyncKey: syncGraph},
		{
			Title:   key + " percentiles",
			Keys:    []string{key + "@p10", key + "@median", key + "@p75", key + "@p95", key + "@p99"},
			SyncKey: syncGraph,
		},
		{Title: key + " distribution", Keys: []string{key + "@" + series.SubkeyLLQ}, Renderer: "heat", SyncKey: syncGraph},
	}
}

// GraphMany overlays keys on one chart. Asking for the keys already shown,
// in any order, changes nothing.
func (s *ChartSet) GraphMany(ctx context.Context, keys []string) error {
	token := s.tick()
	defer s.commit()
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.clock {
		return ErrSuperseded
	}
	return s.graphManyLocked(keys)
}

func (s *ChartSet) graphManyLocked(keys []string) error {
	keys = dedupe(keys)
	if len(keys) == 0 {
		s.clearLocked()
		return nil
	}
	if s.mode == ModeGraph && s.layout == LayoutMany && sameSet(keys, s.keys) {
		return nil
	}
	spec := Spec{Title: joinTitle(keys), Keys: keys, SyncKey: syncGraph}
	return s.applyLocked(ModeGraph, LayoutMany, keys, "", []Spec{spec})
}

// GraphAdd adds key to what is shown. With nothing shown, or outside graph
// mode, it behaves like GraphOne.
func (s *ChartSet) GraphAdd(ctx context.Context, key string) error {
	token := s.tick()
	defer s.commit()
	s.mu.Lock()
	if s.mode != ModeGraph || len(s.keys) == 0 {
		s.mu.Unlock()
		return s.graphOne(ctx, token, key)
	}
	defer s.mu.Unlock()
	if token != s.clock {
		return ErrSuperseded
	}
	if contains(s.keys, key) {
		return nil
	}
	return s.graphManyLocked(append(append([]string(nil), s.keys...), key))
}

// GraphRemove drops key. One remaining key is shown with GraphOne; none
// clears the set. Keys not shown are ignored.
func (s *ChartSet) GraphRemove(ctx context.Context, key string) error {
	token := s.tick()
	defer s.commit()
	s.mu.Lock()
	if token != s.clock {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if s.mode != ModeGraph || !contains(s.keys, key) {
		s.mu.Unlock()
		return nil
	}
	remaining := make([]string, 0, len(s.keys)-1)
	for _, k := range s.keys {
		if k != key {
			remaining = append(remaining, k)
		}
	}
	switch len(remaining) {
	case 0:
		defer s.mu.Unlock()
		s.clearLocked()
		return nil
	case 1:
		s.mu.Unlock()
		return s.graphOne(ctx, token, remaining[0])
	}
	defer s.mu.Unlock()
	return s.graphManyLocked(remaining)
}

// GraphDashboardID shows a saved dashboard. If loading it fails the current
// state is kept and the error returned.
func (s *ChartSet) GraphDashboardID(ctx context.Context, id string) error {
	token := s.tick()
	defer s.commit()
	d, err := s.dashboards.Dashboard(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.clock {
		s.log.WithField("dashboard", id).Debug("dropping stale dashboard load")
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("failed to load dashboard %q: %w", id, err)
	}

	specs := make([]Spec, 0, len(d.Graphs))
	var keys []string
	for _, g := range d.Graphs {
		specs = append(specs, Spec{
			Title:    g.DisplayTitle(),
			Keys:     append([]string(nil), g.Keys...),
			Renderer: g.Renderer,
			SyncKey:  "dashboard:" + d.ID,
		})
		keys = append(keys, g.Keys...)
	}
	return s.applyLocked(ModeDashboard, LayoutDashboard, dedupe(keys), d.ID, specs)
}

// Clear destroys every chart.
func (s *ChartSet) Clear() {
	s.tick()
	defer s.commit()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *ChartSet) clearLocked() {
	s.destroyChartsLocked()
	s.mode, s.layout, s.keys, s.dashboard = ModeGraph, LayoutNone, nil, ""
}

func (s *ChartSet) destroyChartsLocked() {
	for _, c := range s.charts {
		c.Destroy()
	}
	s.charts = nil
}

// applyLocked destroys the current charts and builds new ones from specs.
// If a chart cannot be built, the ones already built are destroyed and the
// set is left empty.
func (s *ChartSet) applyLocked(mode Mode, layout Layout, keys []string, dash string, specs []Spec) error {
	s.destroyChartsLocked()
	charts := make([]Chart, 0, len(specs))
	for _, spec := range specs {
		c, err := s.factory.NewChart(spec)
		if err != nil {
			for _, built := range charts {
				built.Destroy()
			}
			s.mode, s.layout, s.keys, s.dashboard = ModeGraph, LayoutNone, nil, ""
			return fmt.Errorf("failed to build chart %q: %w", spec.Title, err)
		}
		charts = append(charts, c)
	}
	s.mode, s.layout, s.keys, s.dashboard, s.charts = mode, layout, keys, dash, charts
	s.log.WithFields(logrus.Fields{
		"mode":   mode.String(),
		"layout": layout.String(),
		"charts": len(charts),
	}).Debug("chart set switched")
	return nil
}

func baseKey(key string) string {
	if i := strings.LastIndexByte(key, '@'); i >= 0 {
		return key[:i]
	}
	return key
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func joinTitle(keys []string) string {
	if len(keys) <= 3 {
		return strings.Join(keys, ", ")
	}
	return fmt.Sprintf("%s and %d more", keys[0], len(keys)-1)
}
