// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package pointset

import "github.com/Voxer/zag-sub000/internal/series"

// XY is a plain line series. Points whose y field is missing are skipped.
type XY struct {
	y      Accessor
	xs     []float64
	ys     []float64
	bounds Bounds
}

// NewXY creates an xy set reading y through acc.
func NewXY(acc Accessor) *XY {
	return &XY{y: acc}
}

func (s *XY) Kind() Kind { return KindXY }

// SetData replaces the data and recomputes bounds.
func (s *XY) SetData(pts []series.Point) {
	s.xs = make([]float64, 0, len(pts))
	s.ys = make([]float64, 0, len(pts))
	s.bounds = Bounds{}
	for _, p := range pts {
		x, _ := TimeX(p)
		y, ok := s.y(p)
		if !ok {
			continue
		}
		s.xs = append(s.xs, x)
		s.ys = append(s.ys, y)
		s.bounds.extend(x, y)
	}
}

func (s *XY) Len() int       { return len(s.xs) }
func (s *XY) Bounds() Bounds { return s.bounds }

func (s *XY) XToIndexExact(x float64) int  { return exactIndex(s.xs, x) }
func (s *XY) XToIndexApprox(x float64) int { return approxIndex(s.xs, x) }

func (s *XY) XAt(i int) float64 { return s.xs[i] }

func (s *XY) FindPoint(x, _ float64) (Rendered, bool) {
	i := s.XToIndexExact(x)
	if i < 0 {
		return Rendered{}, false
	}
	return Rendered{Index: i, X: s.xs[i], Y: s.ys[i]}, true
}

func (s *XY) Points() []Rendered {
	out := make([]Rendered, len(s.xs))
	for i := range s.xs {
		out[i] = Rendered{Index: i, X: s.xs[i], Y: s.ys[i]}
	}
	return out
}
