// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package pointset

import (
	"reflect"
	"testing"

	"github.com/Voxer/zag-sub000/internal/series"
)

func counters(xs []int64, ys []float64) []series.Point {
	out := make([]series.Point, len(xs))
	for i := range xs {
		out[i] = series.Counter{TS: xs[i], Count: ys[i]}
	}
	return out
}

func TestXY_IndexLookup(t *testing.T) {
	s := NewXY(FieldY("count"))
	s.SetData(counters([]int64{0, 2, 4, 6}, []float64{1, 5, 3, 2}))

	approx := []struct {
		x    float64
		want int
	}{
		{1.6, 1},
		{4.2, 2},
		{-10, 0},
		{10, 3},
		{1, 0},
		{5, 2},
	}
	for _, tt := range approx {
		if got := s.XToIndexApprox(tt.x); got != tt.want {
			t.Errorf("XToIndexApprox(%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
	if got := s.XToIndexExact(4); got != 2 {
		t.Errorf("XToIndexExact(4) = %d, want 2", got)
	}
	if got := s.XToIndexExact(3); got != -1 {
		t.Errorf("XToIndexExact(3) = %d, want -1", got)
	}

	b := s.Bounds()
	if !b.Valid || b.XMin != 0 || b.XMax != 6 || b.YMin != 1 || b.YMax != 5 {
		t.Errorf("Bounds() = %+v", b)
	}

	p, ok := s.FindPoint(2, 0)
	if !ok || p.Y != 5 || p.Index != 1 {
		t.Errorf("FindPoint(2) = %+v, %v", p, ok)
	}
	if _, ok := s.FindPoint(3, 0); ok {
		t.Error("FindPoint(3) should miss")
	}
}

func TestXY_EmptyAndMissingFields(t *testing.T) {
	s := NewXY(FieldY("p95"))
	if s.XToIndexApprox(1) != -1 {
		t.Error("empty set should return -1")
	}
	s.SetData([]series.Point{
		series.Counter{TS: 1, Count: 3},
		series.Histogram{TS: 2, P95: 9},
	})
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (counter has no p95)", s.Len())
	}
}

func TestStack_Restack(t *testing.T) {
	layers := NewLayers()
	l0 := NewStack(layers, FieldY("count"))
	l1 := NewStack(layers, FieldY("count"))
	l0.SetData(counters([]int64{0, 1, 2}, []float64{1, 2, 3}))
	l1.SetData(counters([]int64{0, 1, 2}, []float64{2, 4, 2}))

	if got := l1.Values(); !reflect.DeepEqual(got, []float64{3, 6, 5}) {
		t.Errorf("layer1 = %v, want [3 6 5]", got)
	}
	if got := l0.Values(); !reflect.DeepEqual(got, []float64{1, 2, 3}) {
		t.Errorf("layer0 = %v, want [1 2 3]", got)
	}
	p, ok := l1.FindPoint(1, 0)
	if !ok || p.Y != 6 || p.Base != 2 {
		t.Errorf("FindPoint(1) = %+v, %v; want Y=6 Base=2", p, ok)
	}
	if _, dirty := layers.Dirty(); dirty {
		t.Error("layers should be clean after a read")
	}
}

func TestStack_MergesMisalignedX(t *testing.T) {
	layers := NewLayers()
	l0 := NewStack(layers, FieldY(""))
	l1 := NewStack(layers, FieldY(""))
	l0.SetData(counters([]int64{0, 1}, []float64{5, 6}))
	l1.SetData(counters([]int64{1, 2}, []float64{1, 2}))

	got := l1.Points()
	want := []Rendered{
		{Index: 0, X: 0, Y: 5, Base: 5},
		{Index: 1, X: 1, Y: 7, Base: 6},
		{Index: 2, X: 2, Y: 2, Base: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Points() = %+v, want %+v", got, want)
	}
}

func TestLayers_Watermark(t *testing.T) {
	layers := NewLayers()
	for i := 0; i < 10; i++ {
		NewStack(layers, FieldY(""))
	}
	layers.Clean()

	layers.SetDirtyIndex(5)
	layers.SetDirtyIndex(7)
	if w, dirty := layers.Dirty(); !dirty || w != 5 {
		t.Errorf("Dirty() = %d, %v; want 5, true", w, dirty)
	}
	layers.SetDirtyIndex(2)
	if w, _ := layers.Dirty(); w != 2 {
		t.Errorf("watermark = %d, want 2", w)
	}
	layers.Clean()
	if _, dirty := layers.Dirty(); dirty {
		t.Error("Clean should reset the watermark")
	}
}

func TestLayers_Remove(t *testing.T) {
	layers := NewLayers()
	l0 := NewStack(layers, FieldY(""))
	l1 := NewStack(layers, FieldY(""))
	l2 := NewStack(layers, FieldY(""))
	l0.SetData(counters([]int64{0}, []float64{1}))
	l1.SetData(counters([]int64{0}, []float64{10}))
	l2.SetData(counters([]int64{0}, []float64{100}))
	if got := l2.Values(); !reflect.DeepEqual(got, []float64{111}) {
		t.Fatalf("l2 = %v, want [111]", got)
	}

	if !layers.Remove(l1) {
		t.Fatal("Remove returned false")
	}
	if got := l2.Values(); !reflect.DeepEqual(got, []float64{101}) {
		t.Errorf("l2 after removing l1 = %v, want [101]", got)
	}
	if got := l1.Values(); !reflect.DeepEqual(got, []float64{10}) {
		t.Errorf("removed layer = %v, want [10]", got)
	}
	if layers.Len() != 2 {
		t.Errorf("Len() = %d, want 2", layers.Len())
	}
	if layers.Remove(l1) {
		t.Error("second Remove should return false")
	}
}

func TestHeat(t *testing.T) {
	h := NewHeat(4)
	h.SetData([]series.Point{
		series.LLQ{TS: 1000, Data: map[string]float64{"10": 2, "30": 4}},
		series.LLQ{TS: 2000, Data: map[string]float64{"30": 1}},
		series.Counter{TS: 3000, Count: 1},
	})

	if h.RowHeight() != 10 {
		t.Fatalf("RowHeight() = %v, want 10", h.RowHeight())
	}
	want := [][]float64{
		{1000, 10, 2, 0.5, 30, 4, 1},
		{2000, 30, 1, 0.25},
	}
	if !reflect.DeepEqual(h.Columns(), want) {
		t.Errorf("Columns() = %v, want %v", h.Columns(), want)
	}

	cell, ok := h.FindPoint(1000, 35)
	if !ok || cell.Base != 30 || cell.Freq != 4 || cell.Gradient != 1 {
		t.Errorf("FindPoint(1000, 35) = %+v, %v", cell, ok)
	}
	if cell, ok := h.FindPoint(1000, 15); !ok || cell.Base != 10 {
		t.Errorf("FindPoint(1000, 15) = %+v, %v", cell, ok)
	}
	if _, ok := h.FindPoint(1000, 25); ok {
		t.Error("FindPoint in an empty row should miss")
	}
	if _, ok := h.FindPoint(1500, 35); ok {
		t.Error("FindPoint at an unknown x should miss")
	}
	if got := h.XToIndexApprox(1600); got != 1 {
		t.Errorf("XToIndexApprox(1600) = %d, want 1", got)
	}
	b := h.Bounds()
	if b.YMin != 0 || b.YMax != 40 || b.XMin != 1000 || b.XMax != 2000 {
		t.Errorf("Bounds() = %+v", b)
	}
	if n := len(h.Points()); n != 3 {
		t.Errorf("len(Points()) = %d, want 3", n)
	}
}

func TestNew(t *testing.T) {
	if New(series.Key{Base: "a", Subkey: "llq", Delta: 1}, nil, 0).Kind() != KindHeat {
		t.Error("llq key should get a heat set")
	}
	if New(series.Key{Base: "a", Delta: 1}, NewLayers(), 0).Kind() != KindStack {
		t.Error("key with layers should get a stack set")
	}
	if New(series.Key{Base: "a", Subkey: "p95", Delta: 1}, nil, 0).Kind() != KindXY {
		t.Error("plain key should get an xy set")
	}
}
