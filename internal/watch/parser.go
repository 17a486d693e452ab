// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Voxer/zag-sub000/internal/series"
)

// Sample is one parsed metric line. Plain samples carry a Value that is
// summed into counter buckets; JSON lines with point fields carry a Point
// that is sent as is.
type Sample struct {
	Key    string
	Value  float64
	TS     int64 // epoch ms
	Point  series.Point
	Source string
}

// ErrBlank is returned for empty lines and comments.
var ErrBlank = errors.New("blank line")

// Timestamp layouts accepted besides epoch milliseconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
}

// ParseLine parses a metric line. Two formats are accepted:
//
//	{"key":"api.requests","value":3}
//	{"key":"api.latency","ts":1700000000000,"count":4,"mean":12.5,...}
//	api.requests 3 [ts]
//
// A missing timestamp means now.
func ParseLine(line, source string, now time.Time) (Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Sample{}, ErrBlank
	}
	if strings.HasPrefix(line, "{") {
		s, err := parseJSONLine(line, now)
		s.Source = source
		return s, err
	}
	s, err := parsePlainLine(line, now)
	s.Source = source
	return s, err
}

func parseJSONLine(line string, now time.Time) (Sample, error) {
	if !gjson.Valid(line) {
		return Sample{}, errors.New("invalid JSON line")
	}
	obj := gjson.Parse(line)
	key := obj.Get("key")
	if key.Type != gjson.String || strings.TrimSpace(key.Str) == "" {
		return Sample{}, errors.New("JSON line is missing key")
	}
	s := Sample{Key: key.Str, TS: now.UnixMilli()}

	if ts := obj.Get("ts"); ts.Exists() {
		v, err := parseTimestamp(ts.String())
		if err != nil {
			return Sample{}, err
		}
		s.TS = v
	}
	if v := obj.Get("value"); v.Exists() {
		if v.Type != gjson.Number {
			return Sample{}, fmt.Errorf("value of %q is not a number", s.Key)
		}
		s.Value = v.Float()
		return s, nil
	}
	if !obj.Get("ts").Exists() {
		return Sample{}, fmt.Errorf("point line for %q needs ts", s.Key)
	}
	p, err := series.DecodePoint([]byte(line))
	if err != nil {
		return Sample{}, fmt.Errorf("point line for %q: %w", s.Key, err)
	}
	s.Point = p
	return s, nil
}

func parsePlainLine(line string, now time.Time) (Sample, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Sample{}, fmt.Errorf("expected \"key value [ts]\", got %q", line)
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid value %q", fields[1])
	}
	s := Sample{Key: fields[0], Value: v, TS: now.UnixMilli()}
	if len(fields) > 2 {
		ts, err := parseTimestamp(strings.Join(fields[2:], " "))
		if err != nil {
			return Sample{}, err
		}
		s.TS = ts
	}
	return s, nil
}

func parseTimestamp(raw string) (int64, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("invalid timestamp %q", raw)
}
