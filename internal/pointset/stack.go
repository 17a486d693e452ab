// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package pointset

import (
	"sync"

	"github.com/Voxer/zag-sub000/internal/series"
)

// Layers is an ordered list of stacked series. Each layer's rendered y is its
// own value plus the rendered y of the layer below, matched by x. Changes
// mark a dirty watermark (the lowest changed layer); Clean restacks from the
// watermark up. Reads through a Stack clean lazily.
type Layers struct {
	mu      sync.Mutex
	stacks  []*Stack
	dirty   int
	isDirty bool
}

// NewLayers creates an empty layer list.
func NewLayers() *Layers {
	return &Layers{}
}

// Push appends s as the new top layer.
func (l *Layers) Push(s *Stack) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pushLocked(s)
}

func (l *Layers) pushLocked(s *Stack) {
	s.layers = l
	s.index = len(l.stacks)
	l.stacks = append(l.stacks, s)
	l.markLocked(s.index)
}

// Remove detaches s. Layers above it restack onto the layer below.
func (l *Layers) Remove(s *Stack) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.layers != l || s.index >= len(l.stacks) || l.stacks[s.index] != s {
		return false
	}
	i := s.index
	l.stacks = append(l.stacks[:i], l.stacks[i+1:]...)
	for j := i; j < len(l.stacks); j++ {
		l.stacks[j].index = j
	}
	if i < len(l.stacks) {
		l.markLocked(i)
	}
	// A removed stack keeps working on its own.
	NewLayers().pushLocked(s)
	return true
}

// SetDirty marks s as changed.
func (l *Layers) SetDirty(s *Stack) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.layers == l {
		l.markLocked(s.index)
	}
}

// SetDirtyIndex marks layer i as changed. The watermark only moves down.
func (l *Layers) SetDirtyIndex(i int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markLocked(i)
}

func (l *Layers) markLocked(i int) {
	if i < 0 {
		i = 0
	}
	if !l.isDirty || i < l.dirty {
		l.dirty = i
		l.isDirty = true
	}
}

// Dirty returns the watermark and whether any layer needs restacking.
func (l *Layers) Dirty() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirty, l.isDirty
}

// Len returns the number of layers.
func (l *Layers) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stacks)
}

// Clean restacks every layer from the watermark to the top.
func (l *Layers) Clean() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanLocked()
}

func (l *Layers) cleanLocked() {
	if !l.isDirty {
		return
	}
	for i := l.dirty; i < len(l.stacks); i++ {
		var below *Stack
		if i > 0 {
			below = l.stacks[i-1]
		}
		l.stacks[i].restack(below)
	}
	l.isDirty = false
	l.dirty = 0
}

// Stack is one layer of a stacked area chart. Missing y values count as 0.
type Stack struct {
	y      Accessor
	layers *Layers
	index  int

	ownX []float64
	ownY []float64

	xs     []float64
	ys     []float64
	base   []float64
	bounds Bounds
}

// NewStack creates a layer on top of layers. A nil layers gives the stack a
// private list of its own.
func NewStack(layers *Layers, acc Accessor) *Stack {
	if layers == nil {
		layers = NewLayers()
	}
	s := &Stack{y: acc}
	layers.Push(s)
	return s
}

func (s *Stack) Kind() Kind { return KindStack }

// SetData replaces this layer's own values and marks it dirty.
func (s *Stack) SetData(pts []series.Point) {
	l := s.layers
	l.mu.Lock()
	defer l.mu.Unlock()
	s.ownX = make([]float64, 0, len(pts))
	s.ownY = make([]float64, 0, len(pts))
	for _, p := range pts {
		x, _ := TimeX(p)
		y, ok := s.y(p)
		if !ok {
			y = 0
		}
		s.ownX = append(s.ownX, x)
		s.ownY = append(s.ownY, y)
	}
	l.markLocked(s.index)
}

// restack merges this layer's own values with the rendered values of the
// layer below, walking both in x order. Callers must hold the layers lock.
func (s *Stack) restack(below *Stack) {
	n, m := len(s.ownX), 0
	if below != nil {
		m = len(below.xs)
	}
	s.xs = make([]float64, 0, n+m)
	s.ys = make([]float64, 0, n+m)
	s.base = make([]float64, 0, n+m)
	s.bounds = Bounds{}

	emit := func(x, y, base float64) {
		s.xs = append(s.xs, x)
		s.ys = append(s.ys, y)
		s.base = append(s.base, base)
		s.bounds.extend(x, y)
		s.bounds.extend(x, base)
	}

	i, j := 0, 0
	for i < n || j < m {
		switch {
		case j >= m || (i < n && s.ownX[i] < below.xs[j]):
			emit(s.ownX[i], s.ownY[i], 0)
			i++
		case i >= n || below.xs[j] < s.ownX[i]:
			emit(below.xs[j], below.ys[j], below.ys[j])
			j++
		default:
			emit(s.ownX[i], s.ownY[i]+below.ys[j], below.ys[j])
			i++
			j++
		}
	}
}

func (s *Stack) read(fn func()) {
	l := s.layers
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanLocked()
	fn()
}

func (s *Stack) Len() int {
	var n int
	s.read(func() { n = len(s.xs) })
	return n
}

func (s *Stack) Bounds() Bounds {
	var b Bounds
	s.read(func() { b = s.bounds })
	return b
}

// Values returns the rendered (stacked) y values in x order.
func (s *Stack) Values() []float64 {
	var out []float64
	s.read(func() { out = append([]float64(nil), s.ys...) })
	return out
}

func (s *Stack) XToIndexExact(x float64) int {
	i := -1
	s.read(func() { i = exactIndex(s.xs, x) })
	return i
}

func (s *Stack) XToIndexApprox(x float64) int {
	i := -1
	s.read(func() { i = approxIndex(s.xs, x) })
	return i
}

func (s *Stack) XAt(i int) float64 {
	var x float64
	s.read(func() { x = s.xs[i] })
	return x
}

func (s *Stack) FindPoint(x, _ float64) (Rendered, bool) {
	var (
		r  Rendered
		ok bool
	)
	s.read(func() {
		i := exactIndex(s.xs, x)
		if i < 0 {
			return
		}
		r, ok = Rendered{Index: i, X: s.xs[i], Y: s.ys[i], Base: s.base[i]}, true
	})
	return r, ok
}

func (s *Stack) Points() []Rendered {
	var out []Rendered
	s.read(func() {
		out = make([]Rendered, len(s.xs))
		for i := range s.xs {
			out[i] = Rendered{Index: i, X: s.xs[i], Y: s.ys[i], Base: s.base[i]}
		}
	})
	return out
}
