// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package session holds the process-scoped state of one chart viewer: the
// interval cache, the shared axes, the live channel and the chart set.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/axis"
	"github.com/Voxer/zag-sub000/internal/chart"
	"github.com/Voxer/zag-sub000/internal/chartset"
	"github.com/Voxer/zag-sub000/internal/interval"
	"github.com/Voxer/zag-sub000/internal/series"
)

// Backend is the data source a session reads from.
type Backend interface {
	interval.Fetcher
	chartset.TypeResolver
	chartset.DashboardSource
}

// Live is an open live channel.
type Live interface {
	Subscribe(ctx context.Context, keys ...string) error
	Unsubscribe(ctx context.Context, keys ...string) error
	Close()
}

// Config tunes a session.
type Config struct {
	Delta           int64
	Window          time.Duration
	HeatRows        int
	LoadConcurrency int
	Now             func() time.Time
}

// Session builds charts for its ChartSet and feeds them live points.
type Session struct {
	cfg    Config
	loader *interval.Loader
	axes   *axis.Registry
	set    *chartset.ChartSet
	log    logrus.FieldLogger

	mu     sync.Mutex
	charts []*chart.PointChart
	refs   map[string]int
	ops    []liveOp
	live   Live
	closed bool

	// commitMu orders live channel calls across concurrent commits.
	commitMu sync.Mutex
}

// liveOp is a queued subscription change.
type liveOp struct {
	subscribe bool
	keys      []string
}

// New creates a session reading from backend.
func New(backend Backend, cfg Config, log logrus.FieldLogger) *Session {
	if cfg.Delta <= 0 {
		cfg.Delta = 60000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Session{
		cfg: cfg,
		loader: interval.NewLoader(backend,
			interval.WithLogger(log),
			interval.WithConcurrency(cfg.LoadConcurrency),
		),
		axes: axis.NewRegistry(),
		log:  log,
		refs: make(map[string]int),
	}
	s.set = chartset.New(backend, backend, s, log)
	return s
}

// ChartSet returns the session's chart set.
func (s *Session) ChartSet() *chartset.ChartSet { return s.set }

// Axes returns the shared axis registry.
func (s *Session) Axes() *axis.Registry { return s.axes }

// Loader returns the interval cache.
func (s *Session) Loader() *interval.Loader { return s.loader }

// Delta returns the bucket width charts are built at.
func (s *Session) Delta() int64 { return s.cfg.Delta }

// Charts returns the live charts in creation order.
func (s *Session) Charts() []*chart.PointChart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*chart.PointChart(nil), s.charts...)
}

// liveKey matches the key points are published under by the server.
func liveKey(k series.Key) string {
	if k.IsLLQ() {
		return k.Base + "@" + series.SubkeyLLQ
	}
	return k.Base
}

// NewChart builds a chart for spec and queues a live subscription for keys
// not yet in use.
func (s *Session) NewChart(spec chartset.Spec) (chartset.Chart, error) {
	renderer, err := chart.ParseRenderer(spec.Renderer)
	if err != nil {
		return nil, err
	}
	keys := make([]series.Key, 0, len(spec.Keys))
	for _, mkey := range spec.Keys {
		k, err := series.ParseKey(mkey, s.cfg.Delta)
		if err != nil {
			return nil, err
		}
		if k.IsLLQ() {
			renderer = chart.RendererHeat
		}
		keys = append(keys, k)
	}
	c, err := chart.New(chart.Deps{Loader: s.loader, Axes: s.axes, Log: s.log}, chart.Options{
		Title:    spec.Title,
		Keys:     keys,
		Renderer: renderer,
		SyncKey:  spec.SyncKey,
		Window:   s.cfg.Window,
		HeatRows: s.cfg.HeatRows,
		Now:      s.cfg.Now,
	})
	if err != nil {
		return nil, err
	}

	var subs []string
	s.mu.Lock()
	s.charts = append(s.charts, c)
	for _, k := range keys {
		lk := liveKey(k)
		if s.refs[lk] == 0 {
			subs = append(subs, lk)
		}
		s.refs[lk]++
	}
	if len(subs) > 0 {
		s.ops = append(s.ops, liveOp{subscribe: true, keys: subs})
	}
	s.mu.Unlock()

	c.OnDestroy(func() { s.release(c, keys) })
	return c, nil
}

func (s *Session) release(c *chart.PointChart, keys []series.Key) {
	var unsubs []string
	s.mu.Lock()
	for i, other := range s.charts {
		if other == c {
			s.charts = append(s.charts[:i], s.charts[i+1:]...)
			break
		}
	}
	for _, k := range keys {
		lk := liveKey(k)
		if s.refs[lk]--; s.refs[lk] <= 0 {
			delete(s.refs, lk)
			unsubs = append(unsubs, lk)
		}
	}
	if len(unsubs) > 0 {
		s.ops = append(s.ops, liveOp{keys: unsubs})
	}
	s.mu.Unlock()
}

// Commit sends the subscription changes queued by NewChart and chart
// destruction to the live channel. The chart set calls it after each switch
// with its own lock released, so a slow server never blocks a switch.
func (s *Session) Commit() {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.mu.Lock()
	ops, live := s.ops, s.live
	s.ops = nil
	s.mu.Unlock()
	if live == nil {
		return
	}
	for _, op := range ops {
		s.apply(live, op)
	}
}

func (s *Session) apply(live Live, op liveOp) {
	if len(op.keys) == 0 {
		return
	}
	if op.subscribe {
		if err := live.Subscribe(context.Background(), op.keys...); err != nil {
			s.log.WithError(err).WithField("keys", op.keys).Warn("failed to subscribe live keys")
		}
		return
	}
	if err := live.Unsubscribe(context.Background(), op.keys...); err != nil {
		s.log.WithError(err).WithField("keys", op.keys).Warn("failed to unsubscribe live keys")
	}
}

// Follow attaches a live channel and subscribes every key in use. Queued
// changes are folded into that subscription.
func (s *Session) Follow(live Live) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.mu.Lock()
	s.live = live
	s.ops = nil
	keys := make([]string, 0, len(s.refs))
	for k := range s.refs {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Strings(keys)
	s.apply(live, liveOp{subscribe: true, keys: keys})
}

// HandlePoint merges a live point into the cache and re-syncs the charts that
// show it. It has the shape of client.PointHandler.
func (s *Session) HandlePoint(key string, p series.Point) {
	var touched []*chart.PointChart
	for _, c := range s.Charts() {
		hit := false
		for _, k := range c.Keys() {
			if liveKey(k) != key {
				continue
			}
			if s.loader.Push(k, p) {
				hit = true
			}
		}
		if hit {
			touched = append(touched, c)
		}
	}
	for _, c := range touched {
		c.Sync()
	}
}

// Tick advances every chart's time ceiling.
func (s *Session) Tick() {
	for _, c := range s.Charts() {
		c.Tick()
	}
}

// Load loads the visible window of every chart. Failures are aggregated;
// charts that loaded keep their data.
func (s *Session) Load(ctx context.Context) error {
	var errs *multierror.Error
	for _, c := range s.Charts() {
		if err := c.Load(ctx); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Close destroys every chart and closes the live channel.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	live := s.live
	s.live = nil
	s.mu.Unlock()

	s.set.Clear()
	if live != nil {
		live.Close()
	}
}
