// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package series

import (
	"math"
	"strconv"
)

// Log-linear quantization keeps one significant digit: 3 -> 3, 37 -> 30,
// 412 -> 400, 0.058 -> 0.05. Each decade is split into nine linear buckets.

func exponent(v float64) int {
	return int(math.Floor(math.Log10(v) + 1e-12))
}

func scale(d float64, e int) float64 {
	if e < 0 {
		return d / math.Pow10(-e)
	}
	return d * math.Pow10(e)
}

// Quantize maps v to the lower bound of its log-linear bucket.
func Quantize(v float64) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	sign := 1.0
	if v < 0 {
		sign, v = -1, -v
	}
	e := exponent(v)
	d := math.Floor(v/math.Pow10(e) + 1e-9)
	if d >= 10 {
		d, e = 1, e+1
	}
	return sign * scale(d, e)
}

// BucketTop returns the upper edge of the bucket whose lower bound is b.
func BucketTop(b float64) float64 {
	if b <= 0 {
		return 1
	}
	e := exponent(b)
	d := math.Round(b / math.Pow10(e))
	return scale(d+1, e)
}

// BucketKey formats a bucket bound the way LLQ.Data keys are written.
func BucketKey(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

// Observe adds one sample of value v to the point's buckets.
func (q *LLQ) Observe(v float64) {
	if q.Data == nil {
		q.Data = make(map[string]float64)
	}
	q.Data[BucketKey(Quantize(v))]++
}
