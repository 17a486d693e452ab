// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package pointset

import (
	"math"

	"github.com/Voxer/zag-sub000/internal/series"
)

// DefaultHeatRows is the number of fixed-height rows a heat map uses.
const DefaultHeatRows = 40

// Heat is a heat map built from LLQ points. Each column is stored flat as
// [x, y0, freq0, gradient0, y1, freq1, gradient1, ...] listing only rows
// with samples, lowest first. Rows are dy high; y spans [0, top of the
// highest bucket]. Gradient is freq over the largest freq in the set.
type Heat struct {
	rows    int
	dy      float64
	columns [][]float64
	xs      []float64
	bounds  Bounds
}

// NewHeat creates a heat set with the given row count.
func NewHeat(rows int) *Heat {
	if rows <= 0 {
		rows = DefaultHeatRows
	}
	return &Heat{rows: rows}
}

func (h *Heat) Kind() Kind { return KindHeat }

// SetData rebuilds the columns. Points that are not LLQ are ignored.
func (h *Heat) SetData(pts []series.Point) {
	h.columns, h.xs, h.bounds, h.dy = nil, nil, Bounds{}, 0

	type column struct {
		x       float64
		buckets []series.Bucket
	}
	cols := make([]column, 0, len(pts))
	var yMax float64
	for _, p := range pts {
		q, ok := p.(series.LLQ)
		if !ok {
			continue
		}
		b := q.Buckets()
		for _, bk := range b {
			yMax = math.Max(yMax, series.BucketTop(bk.Value))
		}
		cols = append(cols, column{x: float64(q.TS), buckets: b})
	}
	if len(cols) == 0 || yMax <= 0 {
		return
	}
	h.dy = yMax / float64(h.rows)

	freqs := make([][]float64, len(cols))
	var maxFreq float64
	for i, c := range cols {
		f := make([]float64, h.rows)
		for _, bk := range c.buckets {
			r := int(bk.Value / h.dy)
			if r < 0 {
				r = 0
			}
			if r >= h.rows {
				r = h.rows - 1
			}
			f[r] += bk.Count
			maxFreq = math.Max(maxFreq, f[r])
		}
		freqs[i] = f
	}

	h.columns = make([][]float64, len(cols))
	h.xs = make([]float64, len(cols))
	for i, c := range cols {
		col := []float64{c.x}
		for r, f := range freqs[i] {
			if f <= 0 {
				continue
			}
			g := 0.0
			if maxFreq > 0 {
				g = f / maxFreq
			}
			col = append(col, float64(r)*h.dy, f, g)
		}
		h.columns[i] = col
		h.xs[i] = c.x
		h.bounds.extend(c.x, 0)
		h.bounds.extend(c.x, yMax)
	}
}

// RowHeight returns dy.
func (h *Heat) RowHeight() float64 { return h.dy }

// Columns returns the flat columns. The slices must not be modified.
func (h *Heat) Columns() [][]float64 { return h.columns }

func (h *Heat) Len() int       { return len(h.columns) }
func (h *Heat) Bounds() Bounds { return h.bounds }

func (h *Heat) XToIndexExact(x float64) int  { return exactIndex(h.xs, x) }
func (h *Heat) XToIndexApprox(x float64) int { return approxIndex(h.xs, x) }

func (h *Heat) XAt(i int) float64 { return h.xs[i] }

// FindPoint returns the cell in column x whose row contains y.
func (h *Heat) FindPoint(x, y float64) (Rendered, bool) {
	i := h.XToIndexExact(x)
	if i < 0 {
		return Rendered{}, false
	}
	col := h.columns[i]
	for k := 1; k+2 < len(col); k += 3 {
		y0 := col[k]
		if y >= y0 && y < y0+h.dy {
			return Rendered{Index: i, X: col[0], Y: y0 + h.dy, Base: y0, Freq: col[k+1], Gradient: col[k+2]}, true
		}
	}
	return Rendered{}, false
}

func (h *Heat) Points() []Rendered {
	var out []Rendered
	for i, col := range h.columns {
		for k := 1; k+2 < len(col); k += 3 {
			out = append(out, Rendered{Index: i, X: col[0], Y: col[k] + h.dy, Base: col[k], Freq: col[k+1], Gradient: col[k+2]})
		}
	}
	return out
}
