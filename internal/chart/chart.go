// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package chart binds series keys, the interval cache, point sets and a
// shared time axis into one drawable chart.
package chart

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/axis"
	"github.com/Voxer/zag-sub000/internal/interval"
	"github.com/Voxer/zag-sub000/internal/pointset"
	"github.com/Voxer/zag-sub000/internal/series"
)

// Renderer selects how a chart draws its series.
type Renderer string

const (
	RendererLine Renderer = "line"
	RendererArea Renderer = "area"
	RendererHeat Renderer = "heat"
)

// ParseRenderer validates a renderer name. Empty means line.
func ParseRenderer(s string) (Renderer, error) {
	switch Renderer(s) {
	case "":
		return RendererLine, nil
	case RendererLine, RendererArea, RendererHeat:
		return Renderer(s), nil
	}
	return "", fmt.Errorf("unknown renderer %q", s)
}

// Options configures a PointChart.
type Options struct {
	Title    string
	Keys     []series.Key
	Renderer Renderer
	// SyncKey shares the time axis with other charts using the same key.
	SyncKey string
	// Window is the default visible time span.
	Window time.Duration
	// HeatRows is the row count for heat maps.
	HeatRows int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Deps are the process-scoped collaborators a chart needs.
type Deps struct {
	Loader *interval.Loader
	Axes   *axis.Registry
	Log    logrus.FieldLogger
}

// PointChart is one chart: a set of keys drawn with one renderer over a
// possibly shared time axis and a private, auto-scaled value axis.
type PointChart struct {
	opts   Options
	loader *interval.Loader
	axes   *axis.Registry
	log    logrus.FieldLogger

	x     *axis.Bounded
	y     *axis.Bounded
	unsub func()

	mu        sync.Mutex
	sets      []pointset.PointSet
	layers    *pointset.Layers
	stale     bool
	destroyed bool
	onDestroy []func()
}

// New creates a chart, acquires its time axis and sets the default window
// ending now.
func New(deps Deps, opts Options) (*PointChart, error) {
	if len(opts.Keys) == 0 {
		return nil, fmt.Errorf("chart %q has no keys", opts.Title)
	}
	if opts.Renderer == "" {
		opts.Renderer = RendererLine
	}
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &PointChart{
		opts:   opts,
		loader: deps.Loader,
		axes:   deps.Axes,
		log:    log.WithField("chart", opts.Title),
		y:      axis.NewBounded(axis.Range{Low: 0, High: 1}),
		stale:  true,
	}
	if opts.Renderer == RendererArea {
		c.layers = pointset.NewLayers()
	}
	for _, k := range opts.Keys {
		var layers *pointset.Layers
		if !k.IsLLQ() {
			layers = c.layers
		}
		c.sets = append(c.sets, pointset.New(k, layers, opts.HeatRows))
	}

	now := float64(opts.Now().UnixMilli())
	initial := axis.Range{Low: now - float64(opts.Window.Milliseconds()), High: now}
	c.x = deps.Axes.Acquire(opts.SyncKey, initial)
	c.x.SetDefaultRange(initial.Low, initial.High)
	c.x.SetCeiling(now)
	c.unsub = c.x.Subscribe(c.onAxis)
	return c, nil
}

func (c *PointChart) onAxis(ev axis.Event, _ axis.Range) {
	if ev == axis.EventPanMove {
		return
	}
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Title returns the chart title.
func (c *PointChart) Title() string { return c.opts.Title }

// Keys returns the chart's series keys.
func (c *PointChart) Keys() []series.Key { return append([]series.Key(nil), c.opts.Keys...) }

// Renderer returns the chart's renderer.
func (c *PointChart) Renderer() Renderer { return c.opts.Renderer }

// XAxis returns the (possibly shared) time axis.
func (c *PointChart) XAxis() *axis.Bounded { return c.x }

// YAxis returns the chart's private value axis.
func (c *PointChart) YAxis() *axis.Bounded { return c.y }

// Stale reports whether the time axis moved since the last Load.
func (c *PointChart) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// OnDestroy registers fn to run once when the chart is destroyed.
func (c *PointChart) OnDestroy(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDestroy = append(c.onDestroy, fn)
}

// Tick advances the time axis ceiling to now so pinned views follow live data.
func (c *PointChart) Tick() {
	c.x.SetCeiling(float64(c.opts.Now().UnixMilli()))
}

// Load fetches the visible window for every key and rebuilds the point sets.
// Keys that fail keep their last good data; the error reports all failures.
func (c *PointChart) Load(ctx context.Context) error {
	r := c.x.Current()
	start, end := int64(math.Floor(r.Low)), int64(math.Ceil(r.High))
	if k := c.opts.Keys[0]; k.Delta > 0 {
		start, end = k.Align(start, end)
	}
	_, err := c.loader.LoadMany(ctx, c.opts.Keys, start, end)
	if err != nil {
		c.log.WithError(err).Warn("chart load failed")
	}
	c.Sync()
	c.mu.Lock()
	c.stale = false
	c.mu.Unlock()
	return err
}

// Sync rebuilds the point sets from cached data without fetching.
func (c *PointChart) Sync() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	for i, k := range c.opts.Keys {
		c.sets[i].SetData(c.loader.GetData(k))
	}
	sets := c.sets
	c.mu.Unlock()

	c.autoscale(sets)
}

func (c *PointChart) autoscale(sets []pointset.PointSet) {
	xr := c.x.Current()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range sets {
		for _, p := range s.Points() {
			if p.X < xr.Low || p.X > xr.High {
				continue
			}
			lo = math.Min(lo, math.Min(p.Base, p.Y))
			hi = math.Max(hi, p.Y)
		}
	}
	if math.IsInf(lo, 1) {
		return
	}
	nr := axis.NiceRange(lo, hi)
	c.y.Reset(nr.Low, nr.High)
}

// Sets returns the point sets, index-aligned with Keys.
func (c *PointChart) Sets() []pointset.PointSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]pointset.PointSet(nil), c.sets...)
}

// HitTest maps a pointer position in a width x height plot area to the
// nearest renderable point across all series.
func (c *PointChart) HitTest(px, py, width, height float64) (Hit, bool) {
	xs := axis.Scale{Domain: c.x.Current(), Pixels: width}
	ys := axis.Scale{Domain: c.y.Current(), Pixels: height, Inverted: true}
	x, y := xs.FromPixel(px), ys.FromPixel(py)

	best, found := Hit{}, false
	bestDist := math.Inf(1)
	for i, s := range c.Sets() {
		idx := s.XToIndexApprox(x)
		if idx < 0 {
			continue
		}
		p, ok := s.FindPoint(s.XAt(idx), y)
		if !ok {
			continue
		}
		d := math.Abs(xs.ToPixel(p.X)-px) + math.Abs(ys.ToPixel(p.Y)-py)
		if d < bestDist {
			bestDist = d
			best = Hit{Key: c.opts.Keys[i], Point: p}
			found = true
		}
	}
	return best, found
}

// Sample is one point mapped into a plot area. Y grows downwards; Base is
// the pixel row of the point's lower edge.
type Sample struct {
	X, Y, Base float64
	Gradient   float64
}

// FrameSeries holds one key's samples.
type FrameSeries struct {
	Key     series.Key
	Kind    pointset.Kind
	Samples []Sample
}

// Frame maps the visible points of every series into a width x height plot
// area, index-aligned with Keys.
func (c *PointChart) Frame(width, height float64) []FrameSeries {
	xr := c.x.Current()
	xs := axis.Scale{Domain: xr, Pixels: width}
	ys := axis.Scale{Domain: c.y.Current(), Pixels: height, Inverted: true}

	sets := c.Sets()
	out := make([]FrameSeries, len(sets))
	for i, s := range sets {
		fs := FrameSeries{Key: c.opts.Keys[i], Kind: s.Kind()}
		for _, p := range s.Points() {
			if !xr.Contains(p.X) {
				continue
			}
			fs.Samples = append(fs.Samples, Sample{
				X:        xs.ToPixel(p.X),
				Y:        ys.ToPixel(p.Y),
				Base:     ys.ToPixel(p.Base),
				Gradient: p.Gradient,
			})
		}
		out[i] = fs
	}
	return out
}

// Hit is the result of a HitTest.
type Hit struct {
	Key   series.Key
	Point pointset.Rendered
}

// Destroy releases the time axis and runs destroy hooks. Safe to call twice.
func (c *PointChart) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	hooks := c.onDestroy
	c.onDestroy = nil
	c.mu.Unlock()

	c.unsub()
	c.axes.Release(c.opts.SyncKey)
	for _, fn := range hooks {
		fn()
	}
}

// Destroyed reports whether Destroy has been called.
func (c *PointChart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}
