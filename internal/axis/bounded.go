// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package axis implements zoomable, pannable coordinate intervals and the
// registry that shares them between charts.
package axis

import (
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyRange is returned when a zoom range has no width.
var ErrEmptyRange = errors.New("range must have low < high")

// Range is a closed coordinate interval.
type Range struct {
	Low  float64
	High float64
}

// Span returns High - Low.
func (r Range) Span() float64 { return r.High - r.Low }

// Shift returns r moved by d.
func (r Range) Shift(d float64) Range { return Range{Low: r.Low + d, High: r.High + d} }

// Contains reports whether v lies within r.
func (r Range) Contains(v float64) bool { return v >= r.Low && v <= r.High }

// Event identifies what changed on a Bounded interval.
type Event int

const (
	// EventZoom fires when the committed range changes by zoom, pop, default or ceiling shift.
	EventZoom Event = iota
	// EventPanMove fires on every pan step with the preview range.
	EventPanMove
	// EventPanDone fires when a pan is committed.
	EventPanDone
)

func (e Event) String() string {
	switch e {
	case EventZoom:
		return "zoom"
	case EventPanMove:
		return "pan:move"
	case EventPanDone:
		return "pan:done"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Listener receives events with the range current after the change.
type Listener func(ev Event, r Range)

type subscription struct {
	id int
	fn Listener
}

// Bounded is a coordinate interval with a zoom history, a pan preview and an
// optional ceiling. Listeners run synchronously, in registration order, after
// the interval's lock is released.
type Bounded struct {
	mu         sync.Mutex
	cur        Range
	stack      []Range
	panning    bool
	panDelta   float64
	ceiling    float64
	hasCeiling bool
	interacted bool
	subs       []subscription
	nextSubID  int
}

// NewBounded creates an interval over r.
func NewBounded(r Range) *Bounded {
	return &Bounded{cur: r}
}

// Current returns the visible range, including any uncommitted pan offset.
func (b *Bounded) Current() Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

func (b *Bounded) currentLocked() Range {
	if b.panning {
		return b.cur.Shift(b.panDelta)
	}
	return b.cur
}

// Committed returns the range ignoring an in-progress pan.
func (b *Bounded) Committed() Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Ceiling returns the upper bound, if one is set.
func (b *Bounded) Ceiling() (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ceiling, b.hasCeiling
}

// Depth returns the number of saved zoom levels.
func (b *Bounded) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stack)
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bounded) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// emit must be called without holding b.mu.
func (b *Bounded) emit(ev Event, r Range, subs []subscription) {
	for _, s := range subs {
		s.fn(ev, r)
	}
}

func (b *Bounded) snapshotSubs() []subscription {
	return append([]subscription(nil), b.subs...)
}

// Zoom saves the current range and switches to [low, high].
func (b *Bounded) Zoom(low, high float64) error {
	if !(low < high) {
		return fmt.Errorf("%w: [%v, %v]", ErrEmptyRange, low, high)
	}
	b.mu.Lock()
	b.stack = append(b.stack, b.cur)
	b.cur = Range{Low: low, High: high}
	b.panning, b.panDelta = false, 0
	b.interacted = true
	r, subs := b.cur, b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventZoom, r, subs)
	return nil
}

// PopZoom restores the most recently saved range. It reports false, and
// emits nothing, when there is no saved range.
func (b *Bounded) PopZoom() bool {
	b.mu.Lock()
	n := len(b.stack)
	if n == 0 {
		b.mu.Unlock()
		return false
	}
	b.cur = b.stack[n-1]
	b.stack = b.stack[:n-1]
	b.panning, b.panDelta = false, 0
	r, subs := b.cur, b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventZoom, r, subs)
	return true
}

// PanBy adds delta to the uncommitted pan offset and emits the preview range.
// With a ceiling set, the preview never moves past it.
func (b *Bounded) PanBy(delta float64) {
	b.mu.Lock()
	b.panning = true
	b.panDelta += delta
	if b.hasCeiling && b.cur.High+b.panDelta > b.ceiling {
		b.panDelta = b.ceiling - b.cur.High
	}
	b.interacted = true
	r, subs := b.currentLocked(), b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventPanMove, r, subs)
}

// PanDone commits the pan offset. The zoom stack is left untouched.
func (b *Bounded) PanDone() {
	b.mu.Lock()
	if !b.panning {
		b.mu.Unlock()
		return
	}
	b.cur = b.cur.Shift(b.panDelta)
	b.panning, b.panDelta = false, 0
	r, subs := b.cur, b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventPanDone, r, subs)
}

// SetDefaultRange sets the range only while nobody has zoomed or panned yet.
func (b *Bounded) SetDefaultRange(low, high float64) bool {
	if !(low < high) {
		return false
	}
	b.mu.Lock()
	if b.interacted {
		b.mu.Unlock()
		return false
	}
	next := Range{Low: low, High: high}
	if next == b.cur {
		b.mu.Unlock()
		return true
	}
	b.cur = next
	r, subs := b.cur, b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventZoom, r, subs)
	return true
}

// SetCeiling sets the upper bound. When the ceiling grows and the committed
// range's right edge sits on the old ceiling, the range moves right with it.
func (b *Bounded) SetCeiling(max float64) {
	b.mu.Lock()
	if !b.hasCeiling {
		b.ceiling, b.hasCeiling = max, true
		b.mu.Unlock()
		return
	}
	old := b.ceiling
	b.ceiling = max
	if max <= old || b.cur.High < old {
		b.mu.Unlock()
		return
	}
	b.cur = b.cur.Shift(max - old)
	r, subs := b.currentLocked(), b.snapshotSubs()
	b.mu.Unlock()

	b.emit(EventZoom, r, subs)
}

// Reset replaces the range and clears the zoom history without counting as
// user interaction. Used for auto-scaled axes.
func (b *Bounded) Reset(low, high float64) {
	b.mu.Lock()
	next := Range{Low: low, High: high}
	changed := next != b.cur
	b.cur = next
	b.stack = nil
	b.panning, b.panDelta = false, 0
	r, subs := b.cur, b.snapshotSubs()
	b.mu.Unlock()

	if changed {
		b.emit(EventZoom, r, subs)
	}
}
