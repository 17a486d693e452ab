// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// PadLeft right-aligns s in width terminal cells, cutting it when too wide.
func PadLeft(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return ansi.Truncate(s, width, "")
	}
	return strings.Repeat(" ", width-w) + s
}

// TruncateWithEllipsis cuts s to maxLen cells, ending in an ellipsis when cut.
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	return ansi.Truncate(s, maxLen, ellipsis)
}

// PadOrTruncate makes s exactly width cells wide. A non-positive width
// returns s unchanged.
func PadOrTruncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	w := ansi.StringWidth(s)
	if w > width {
		return TruncateWithEllipsis(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}
