// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package pointset turns series points into renderable, x-indexed point sets:
// plain xy lines, stacked areas and log-linear heat maps.
package pointset

import (
	"math"
	"sort"

	"github.com/Voxer/zag-sub000/internal/series"
)

// Kind tags the point set variant.
type Kind int

const (
	KindXY Kind = iota
	KindStack
	KindHeat
)

func (k Kind) String() string {
	switch k {
	case KindXY:
		return "xy"
	case KindStack:
		return "stack"
	case KindHeat:
		return "heat"
	}
	return "unknown"
}

// Bounds is the data extent of a point set. Valid is false for empty sets.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	Valid      bool
}

func (b *Bounds) extend(x, y float64) {
	if !b.Valid {
		*b = Bounds{XMin: x, XMax: x, YMin: y, YMax: y, Valid: true}
		return
	}
	b.XMin = math.Min(b.XMin, x)
	b.XMax = math.Max(b.XMax, x)
	b.YMin = math.Min(b.YMin, y)
	b.YMax = math.Max(b.YMax, y)
}

// Rendered is one drawable point. Base is the lower edge for stacked areas
// and heat cells; Freq and Gradient are set for heat cells only.
type Rendered struct {
	Index    int
	X        float64
	Y        float64
	Base     float64
	Freq     float64
	Gradient float64
}

// PointSet is the capability set shared by all variants.
type PointSet interface {
	Kind() Kind
	SetData(pts []series.Point)
	Len() int
	Bounds() Bounds
	// XToIndexExact returns the index whose x equals x, or -1.
	XToIndexExact(x float64) int
	// XToIndexApprox returns the index whose x is nearest to x, clamped to
	// the data; -1 only when the set is empty.
	XToIndexApprox(x float64) int
	// XAt returns the x value at index i.
	XAt(i int) float64
	// FindPoint reconstructs the renderable point at exactly x. y selects
	// the cell for variants with more than one value per x.
	FindPoint(x, y float64) (Rendered, bool)
	// Points returns every renderable point in x order.
	Points() []Rendered
}

// Accessor extracts a coordinate from a point.
type Accessor func(series.Point) (float64, bool)

// TimeX reads the point timestamp.
func TimeX(p series.Point) (float64, bool) {
	return float64(p.Timestamp()), true
}

// FieldY reads the named point field.
func FieldY(subkey string) Accessor {
	return func(p series.Point) (float64, bool) {
		return p.Field(subkey)
	}
}

func exactIndex(xs []float64, x float64) int {
	i := sort.SearchFloat64s(xs, x)
	if i < len(xs) && xs[i] == x {
		return i
	}
	return -1
}

// approxIndex picks the nearer neighbour; ties go to the lower index.
func approxIndex(xs []float64, x float64) int {
	n := len(xs)
	if n == 0 {
		return -1
	}
	i := sort.SearchFloat64s(xs, x)
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	if x-xs[i-1] <= xs[i]-x {
		return i - 1
	}
	return i
}

// New returns the point set variant suited to a key: heat for llq keys,
// a stack layer on layers when it is non-nil, xy otherwise.
func New(key series.Key, layers *Layers, heatRows int) PointSet {
	switch {
	case key.IsLLQ():
		return NewHeat(heatRows)
	case layers != nil:
		return NewStack(layers, FieldY(key.Field()))
	}
	return NewXY(FieldY(key.Field()))
}
