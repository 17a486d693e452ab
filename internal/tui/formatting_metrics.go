// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"math"
	"strings"
)

var sparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// generateSparkline draws values in at most width cells. With more values
// than cells, each cell shows the mean of its share of the values.
func generateSparkline(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("-", width)
	}

	n := width
	if len(values) < n {
		n = len(values)
	}
	cells := make([]float64, n)
	for i := range cells {
		lo, hi := i*len(values)/n, (i+1)*len(values)/n
		var sum float64
		for _, v := range values[lo:hi] {
			sum += v
		}
		cells[i] = sum / float64(hi-lo)
	}

	minVal, maxVal := cells[0], cells[0]
	for _, v := range cells {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	span := maxVal - minVal
	if span == 0 {
		span = 1
	}

	top := len(sparklineChars) - 1
	var b strings.Builder
	for _, v := range cells {
		b.WriteRune(sparklineChars[clampInt(int((v-minVal)/span*float64(top)), 0, top)])
	}
	return b.String()
}

var metricUnits = []struct {
	size   float64
	suffix string
}{
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "K"},
}

// formatMetricValue formats a value for an axis label or status line.
func formatMetricValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	abs := math.Abs(v)
	if abs == 0 {
		return "0"
	}
	for _, u := range metricUnits {
		if abs >= u.size {
			return trimZero(fmt.Sprintf("%.1f%s", v/u.size, u.suffix))
		}
	}
	switch {
	case abs >= 1:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
	case abs >= 0.01:
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.3f", v)
}
