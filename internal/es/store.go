// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Voxer/zag-sub000/internal/series"
	"github.com/Voxer/zag-sub000/internal/store"
)

// FieldPrefix is the namespace metric fields live under. A base key
// "api.reqs" is read from the field "metrics.api.reqs".
const FieldPrefix = "metrics."

// TimestampField is the document time field buckets are built on.
const TimestampField = "@timestamp"

// Store serves metric ranges by aggregating documents into delta sized
// buckets. Numeric fields become counters (sum per bucket) and histogram
// fields become histogram points. It is read-only and has no llq data.
type Store struct {
	exec Executor
}

// NewStore returns a Store reading through exec.
func NewStore(exec Executor) *Store {
	return &Store{exec: exec}
}

func (s *Store) Append(ctx context.Context, key series.Key, pts []series.Point) error {
	return store.ErrReadOnly
}

func (s *Store) KeyType(ctx context.Context, base string) (series.Type, error) {
	res, err := s.exec.FieldCaps(ctx, s.exec.Index(), FieldPrefix+base)
	if err != nil {
		return "", err
	}
	typeMap, ok := res.Fields[FieldPrefix+base]
	if !ok {
		return "", fmt.Errorf("key %q: %w", base, store.ErrNotFound)
	}
	if t, ok := typeOf(typeMap); ok {
		return t, nil
	}
	return "", fmt.Errorf("key %q: %w", base, store.ErrNotFound)
}

func (s *Store) Keys(ctx context.Context, prefix string) ([]store.KeyInfo, error) {
	res, err := s.exec.FieldCaps(ctx, s.exec.Index(), FieldPrefix+prefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]store.KeyInfo, 0, len(res.Fields))
	for name, typeMap := range res.Fields {
		if !strings.HasPrefix(name, FieldPrefix+prefix) {
			continue
		}
		t, ok := typeOf(typeMap)
		if !ok {
			continue
		}
		out = append(out, store.KeyInfo{Key: strings.TrimPrefix(name, FieldPrefix), Type: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// typeOf maps field capabilities to a series type. Only the first
// aggregatable numeric mapping counts.
func typeOf(typeMap map[string]FieldCapsInfo) (series.Type, bool) {
	for _, info := range typeMap {
		if !info.Aggregatable {
			continue
		}
		switch info.Type {
		case "histogram":
			return series.TypeHistogram, true
		case "long", "integer", "short", "byte", "double", "float", "half_float", "scaled_float", "unsigned_long":
			return series.TypeCounter, true
		}
	}
	return "", false
}

// percents requested for histogram buckets, in the order of the
// Histogram fields they fill.
var percents = []float64{10, 50, 75, 95, 99}

func (s *Store) Range(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	if key.IsLLQ() {
		return nil, fmt.Errorf("llq series of %q: %w", key.Base, store.ErrUnsupported)
	}
	typ, err := s.KeyType(ctx, key.Base)
	if err != nil {
		return nil, err
	}
	query, err := buildRangeQuery(key, typ, start, end)
	if err != nil {
		return nil, err
	}

	res, err := s.exec.Search(ctx, s.exec.Index(), query)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if res.IsError {
		return nil, newQueryError(res.Status, body, query)
	}
	return parseBuckets(body, typ, start, end), nil
}

func buildRangeQuery(key series.Key, typ series.Type, start, end int64) ([]byte, error) {
	field := FieldPrefix + key.Base
	var aggs map[string]interface{}
	if typ == series.TypeHistogram {
		aggs = map[string]interface{}{
			"count": map[string]interface{}{"value_count": map[string]interface{}{"field": field}},
			"mean":  map[string]interface{}{"avg": map[string]interface{}{"field": field}},
			"max":   map[string]interface{}{"max": map[string]interface{}{"field": field}},
			"pct": map[string]interface{}{
				"percentiles": map[string]interface{}{"field": field, "percents": percents},
			},
		}
	} else {
		aggs = map[string]interface{}{
			"sum": map[string]interface{}{"sum": map[string]interface{}{"field": field}},
		}
	}

	query := map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				TimestampField: map[string]interface{}{
					"gte":    start,
					"lt":     end,
					"format": "epoch_millis",
				},
			},
		},
		"aggs": map[string]interface{}{
			"over_time": map[string]interface{}{
				"date_histogram": map[string]interface{}{
					"field":          TimestampField,
					"fixed_interval": strconv.FormatInt(key.Delta, 10) + "ms",
					"min_doc_count":  1,
				},
				"aggs": aggs,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	return body, nil
}

func parseBuckets(body []byte, typ series.Type, start, end int64) []series.Point {
	buckets := gjson.GetBytes(body, "aggregations.over_time.buckets").Array()
	out := make([]series.Point, 0, len(buckets))
	for _, b := range buckets {
		ts := b.Get("key").Int()
		if ts < start || ts >= end {
			continue
		}
		if typ != series.TypeHistogram {
			out = append(out, series.Counter{TS: ts, Count: b.Get("sum.value").Float()})
			continue
		}
		pct := b.Get("pct.values")
		at := func(p float64) float64 {
			return pct.Get(gjson.Escape(strconv.FormatFloat(p, 'f', 1, 64))).Float()
		}
		out = append(out, series.Histogram{
			TS:     ts,
			Count:  b.Get("count.value").Float(),
			Mean:   b.Get("mean.value").Float(),
			Median: at(50),
			P10:    at(10),
			P75:    at(75),
			P95:    at(95),
			P99:    at(99),
			Max:    b.Get("max.value").Float(),
		})
	}
	return out
}
