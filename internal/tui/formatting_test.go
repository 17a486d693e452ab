// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestPadLeft(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"abc", 5, "  abc"},
		{"abc", 3, "abc"},
		{"abcdef", 3, "abc"}, // Truncates
		{"", 3, "   "},
		{"x", 1, "x"},
		{"日本", 6, "  日本"}, // Wide runes count two cells
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result := PadLeft(tc.input, tc.width)
			if result != tc.expected {
				t.Errorf("PadLeft(%q, %d) = %q, want %q", tc.input, tc.width, result, tc.expected)
			}
		})
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello world", 11, "hello world"},
		{"hello world", 10, "hello wor…"},
		{"hello world", 5, "hell…"},
		{"hello", 1, "…"},
		{"hi", 2, "hi"},
		{"hello", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result := TruncateWithEllipsis(tc.input, tc.maxLen)
			if result != tc.expected {
				t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
			}
		})
	}
}

func TestPadOrTruncate(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"hello", 10, "hello     "}, // Pad
		{"hello world", 5, "hell…"}, // Truncate with ellipsis
		{"hello", 5, "hello"},       // Exact
		{"hi", 3, "hi "},            // Pad
		{"abcd", 2, "a…"},           // Truncate keeps the ellipsis
		{"hello", 0, "hello"},       // Zero width returns original
		{"", 5, "     "},            // Empty string pads
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			result := PadOrTruncate(tc.input, tc.width)
			if result != tc.expected {
				t.Errorf("PadOrTruncate(%q, %d) = %q, want %q", tc.input, tc.width, result, tc.expected)
			}
		})
	}
}

func TestFormatClockTime(t *testing.T) {
	tests := []struct {
		time     time.Time
		expected string
	}{
		{time.Date(2024, 1, 15, 9, 5, 3, 0, time.UTC), "09:05:03"},
		{time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC), "23:59:59"},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "00:00:00"},
		{time.Date(2024, 1, 15, 12, 30, 45, 0, time.UTC), "12:30:45"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			result := formatClockTime(tc.time)
			if result != tc.expected {
				t.Errorf("formatClockTime() = %q, want %q", result, tc.expected)
			}
		})
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"never", time.Time{}, "never"},
		{"now", now, "now"},
		{"seconds", now.Add(-30 * time.Second), "30s ago"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatSince(tc.t, now); got != tc.want {
				t.Errorf("formatSince() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatSpan(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1.5m"},
		{time.Hour, "1h"},
		{36 * time.Hour, "36h"},
		{48 * time.Hour, "2d"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := formatSpan(tc.d); got != tc.want {
				t.Errorf("formatSpan(%v) = %q, want %q", tc.d, got, tc.want)
			}
		})
	}
}

func TestFormatAxisTime(t *testing.T) {
	ts := time.Date(2024, 1, 15, 9, 5, 3, 0, time.Local)
	ms := float64(ts.UnixMilli())
	tests := []struct {
		span time.Duration
		want string
	}{
		{time.Minute, "09:05:03"},
		{time.Hour, "09:05"},
		{48 * time.Hour, "01-15 09:05"},
	}
	for _, tc := range tests {
		if got := formatAxisTime(ms, tc.span); got != tc.want {
			t.Errorf("formatAxisTime(span %v) = %q, want %q", tc.span, got, tc.want)
		}
	}
}

func TestFormatMetricValue(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0"},
		{math.NaN(), "-"},
		{2.5, "2.5"},
		{0.05, "0.05"},
		{0.001, "0.001"},
		{1500, "1.5K"},
		{-2_000_000, "-2M"},
		{3_000_000_000, "3G"},
		{12, "12"},
	}
	for _, tc := range tests {
		if got := formatMetricValue(tc.v); got != tc.want {
			t.Errorf("formatMetricValue(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestGenerateSparkline(t *testing.T) {
	if got := generateSparkline(nil, 4); got != "----" {
		t.Errorf("generateSparkline(nil) = %q, want dashes", got)
	}
	if got := generateSparkline([]float64{0, 7}, 10); got != "▁█" {
		t.Errorf("generateSparkline() = %q, want one cell per value", got)
	}
	got := generateSparkline([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	if n := len([]rune(got)); n != 4 {
		t.Errorf("generateSparkline() = %q, want 4 cells", got)
	}
	if !strings.HasPrefix(got, "▁") {
		t.Errorf("generateSparkline() = %q, want the minimum first", got)
	}
}
