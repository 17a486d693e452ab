// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package axis

import "math"

// Scale maps a domain range onto [0, Pixels]. Inverted scales put Low at
// the far end, as screen y axes do.
type Scale struct {
	Domain   Range
	Pixels   float64
	Inverted bool
}

// ToPixel maps a domain value to a pixel offset.
func (s Scale) ToPixel(v float64) float64 {
	span := s.Domain.Span()
	if span == 0 || s.Pixels == 0 {
		return 0
	}
	p := (v - s.Domain.Low) / span * s.Pixels
	if s.Inverted {
		return s.Pixels - p
	}
	return p
}

// FromPixel maps a pixel offset back to a domain value.
func (s Scale) FromPixel(p float64) float64 {
	if s.Pixels == 0 {
		return s.Domain.Low
	}
	if s.Inverted {
		p = s.Pixels - p
	}
	return s.Domain.Low + p/s.Pixels*s.Domain.Span()
}

// PanDelta converts a pointer drag of dx pixels into a domain offset.
// Dragging right moves the view left in time. amplification scales the
// result; values <= 0 are treated as 1.
func (s Scale) PanDelta(dx, amplification float64) float64 {
	if s.Pixels == 0 {
		return 0
	}
	if amplification <= 0 {
		amplification = 1
	}
	return -dx / s.Pixels * s.Domain.Span() * amplification
}

// ZoomAround returns r scaled by factor around center. factor < 1 zooms in.
func ZoomAround(r Range, center, factor float64) Range {
	return Range{
		Low:  center - (center-r.Low)*factor,
		High: center + (r.High-center)*factor,
	}
}

// NiceRange widens [lo, hi] to round bounds suitable for a value axis.
// Non-negative data keeps a zero baseline.
func NiceRange(lo, hi float64) Range {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsNaN(lo) || math.IsNaN(hi) {
		return Range{Low: 0, High: 1}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo >= 0 {
		lo = 0
	}
	if hi == lo {
		hi = lo + 1
	}
	step := niceStep((hi - lo) / 4)
	return Range{
		Low:  math.Floor(lo/step) * step,
		High: math.Ceil(hi/step) * step,
	}
}

func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow10(int(math.Floor(math.Log10(raw))))
	switch f := raw / mag; {
	case f <= 1:
		return mag
	case f <= 2:
		return 2 * mag
	case f <= 5:
		return 5 * mag
	}
	return 10 * mag
}

// Ticks returns evenly spaced round values inside r, roughly n of them.
func Ticks(r Range, n int) []float64 {
	if n <= 0 || r.Span() <= 0 {
		return nil
	}
	step := niceStep(r.Span() / float64(n))
	var out []float64
	for v := math.Ceil(r.Low/step) * step; v <= r.High+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}
