// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"time"
)

// formatClockTime returns zero-padded HH:MM:SS
func formatClockTime(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// formatAxisTime formats an x axis label. Spans longer than a day get the date.
func formatAxisTime(ms float64, span time.Duration) string {
	t := time.UnixMilli(int64(ms))
	switch {
	case span > 24*time.Hour:
		return t.Format("01-02 15:04")
	case span > 10*time.Minute:
		return t.Format("15:04")
	default:
		return formatClockTime(t)
	}
}

// formatSince formats how long ago t was, relative to now
func formatSince(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case t.IsZero():
		return "never"
	case diff < time.Second:
		return "now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
}

// formatSpan formats a window width like 1h, 15m or 30s
func formatSpan(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	case d >= time.Hour:
		return trimZero(fmt.Sprintf("%.1fh", d.Hours()))
	case d >= time.Minute:
		return trimZero(fmt.Sprintf("%.1fm", d.Minutes()))
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}

func trimZero(s string) string {
	if n := len(s); n > 3 && s[n-3:n-1] == ".0" {
		return s[:n-3] + s[n-1:]
	}
	return s
}
