// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package series defines the metric point types, series keys and their wire codecs.
package series

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Type is the type of a metric key as reported by a type lookup.
type Type string

const (
	TypeCounter   Type = "counter"
	TypeHistogram Type = "histogram"
	TypeLLQ       Type = "llq"
)

// ErrUnknownType is returned when a type string is not one of the known types.
var ErrUnknownType = errors.New("unknown metric type")

// ParseType validates a type string.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCounter, TypeHistogram, TypeLLQ:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Point is a single timestamped sample. The set of implementations is closed:
// Counter, Histogram and LLQ.
type Point interface {
	// Timestamp is the bucket start in epoch milliseconds.
	Timestamp() int64
	// Type reports which variant this point is.
	Type() Type
	// Field returns the numeric value named by subkey ("" means count).
	Field(subkey string) (float64, bool)

	point()
}

// Counter is a point carrying only a count.
type Counter struct {
	TS    int64   `json:"ts"`
	Count float64 `json:"count"`
}

func (c Counter) Timestamp() int64 { return c.TS }
func (c Counter) Type() Type       { return TypeCounter }
func (Counter) point()             {}

func (c Counter) Field(subkey string) (float64, bool) {
	if subkey == "" || subkey == "count" {
		return c.Count, true
	}
	return 0, false
}

// Histogram is a point carrying distribution statistics for its bucket.
type Histogram struct {
	TS     int64   `json:"ts"`
	Count  float64 `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	P10    float64 `json:"p10"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Max    float64 `json:"max"`
}

func (h Histogram) Timestamp() int64 { return h.TS }
func (h Histogram) Type() Type       { return TypeHistogram }
func (Histogram) point()             {}

// HistogramFields lists the subkeys a histogram point answers to, in display order.
var HistogramFields = []string{"count", "mean", "median", "std_dev", "p10", "p75", "p95", "p99", "max"}

func (h Histogram) Field(subkey string) (float64, bool) {
	switch subkey {
	case "", "count":
		return h.Count, true
	case "mean":
		return h.Mean, true
	case "median":
		return h.Median, true
	case "std_dev":
		return h.StdDev, true
	case "p10":
		return h.P10, true
	case "p75":
		return h.P75, true
	case "p95":
		return h.P95, true
	case "p99":
		return h.P99, true
	case "max":
		return h.Max, true
	}
	return 0, false
}

// LLQ is a point carrying log-linear quantized bucket counts.
// Data keys are bucket lower bounds formatted as decimal strings.
type LLQ struct {
	TS   int64              `json:"ts"`
	Data map[string]float64 `json:"data"`
}

func (q LLQ) Timestamp() int64 { return q.TS }
func (q LLQ) Type() Type       { return TypeLLQ }
func (LLQ) point()             {}

// Field on an LLQ point answers "count" with the total number of samples.
func (q LLQ) Field(subkey string) (float64, bool) {
	if subkey != "" && subkey != "count" {
		return 0, false
	}
	var total float64
	for _, n := range q.Data {
		total += n
	}
	return total, true
}

// Bucket is one parsed LLQ bucket.
type Bucket struct {
	Value float64
	Count float64
}

// Buckets returns the point's buckets ordered by value. Unparseable keys are skipped.
func (q LLQ) Buckets() []Bucket {
	out := make([]Bucket, 0, len(q.Data))
	for k, n := range q.Data {
		v, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		out = append(out, Bucket{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
