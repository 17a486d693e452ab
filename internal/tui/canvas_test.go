// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/Voxer/zag-sub000/internal/axis"
	"github.com/Voxer/zag-sub000/internal/chart"
)

func column(cv *canvas, col int) string {
	var b strings.Builder
	for row := 0; row < cv.h; row++ {
		b.WriteRune(cv.cells[row][col])
	}
	return b.String()
}

// Samples below are in pixel space on a 4 row canvas: y=0 is the top edge
// and y=4 the bottom.

func TestCanvas_DrawLine(t *testing.T) {
	cv := newCanvas(4, 4)
	cv.drawLine([]chart.Sample{
		{X: 0, Y: 3},
		{X: 0.5, Y: 1},
		{X: 2, Y: 0},
		{X: 9, Y: 2},
	}, 0)

	if got := column(cv, 0); got != " •  " {
		t.Errorf("column 0 = %q, want the highest value of the column only", got)
	}
	if got := column(cv, 2); got != "•   " {
		t.Errorf("column 2 = %q, want top row", got)
	}
	if got := column(cv, 3); got != "  • " {
		t.Errorf("column 3 = %q, want x clamped to the last column", got)
	}
	if cv.owner[1][0] != 0 {
		t.Errorf("owner = %d, want 0", cv.owner[1][0])
	}
}

func TestCanvas_DrawArea(t *testing.T) {
	cv := newCanvas(4, 4)
	cv.drawArea([]chart.Sample{{X: 1, Y: 2, Base: 4}, {X: 2, Y: 0, Base: 1}}, 1)

	if got := column(cv, 1); got != "  ██" {
		t.Errorf("column 1 = %q, want filled from base to top", got)
	}
	if got := column(cv, 2); got != "██  " {
		t.Errorf("column 2 = %q, want stacked band", got)
	}
}

func TestCanvas_DrawHeat(t *testing.T) {
	cv := newCanvas(2, 4)
	cv.drawHeat([]chart.Sample{
		{X: 0, Y: 0, Base: 0.5, Gradient: 1},
		{X: 0, Y: 2, Base: 2.5, Gradient: 0.3},
		{X: 0, Y: 3, Base: 3.5, Gradient: 0},
	}, 0)

	if got := column(cv, 0); got != "█ ▒ " {
		t.Errorf("column 0 = %q, want shaded by gradient", got)
	}
}

func TestCanvas_SetOutOfBounds(t *testing.T) {
	cv := newCanvas(2, 2)
	cv.set(-1, 0, 'x', 0)
	cv.set(0, 5, 'x', 0)
	for row := 0; row < 2; row++ {
		if got := cv.Row(row); got != "  " {
			t.Errorf("Row(%d) = %q, want blank", row, got)
		}
	}
}

func TestYLabels(t *testing.T) {
	got := yLabels(axis.Range{Low: 0, High: 100}, 11)
	want := map[int]string{0: "100", 5: "50", 10: "0"}
	for row, label := range got {
		if label != want[row] {
			t.Errorf("row %d label = %q, want %q", row, label, want[row])
		}
	}
	if got := yLabels(axis.Range{Low: 0, High: 100}, 0); len(got) != 0 {
		t.Errorf("yLabels with no rows = %v, want none", got)
	}
}

func TestDrawChart(t *testing.T) {
	m := newTestModel(t, newMockBackend())
	if err := m.sess.ChartSet().GraphOne(context.Background(), "cpu"); err != nil {
		t.Fatal(err)
	}
	if err := m.sess.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	cv := drawChart(m.current(), 20, 5)
	top := cv.Row(0)
	if n := strings.Count(top, "•"); n < 15 {
		t.Errorf("top row = %q, want a flat line of ones", top)
	}
	for row := 1; row < 5; row++ {
		if strings.Contains(cv.Row(row), "•") {
			t.Errorf("row %d = %q, want blank", row, cv.Row(row))
		}
	}
}

func TestView(t *testing.T) {
	m := newTestModel(t, newMockBackend())
	if view := m.View(); !strings.Contains(view, "No charts") {
		t.Errorf("View() without charts = %q", view)
	}

	if err := m.sess.ChartSet().GraphDashboardID(context.Background(), "ops"); err != nil {
		t.Fatal(err)
	}
	if err := m.sess.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	view := m.View()
	for _, want := range []string{"CPU", "Memory", "dashboard ops", "Window:", "1m"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() is missing %q:\n%s", want, view)
		}
	}

	m.height = 8
	if view := m.View(); !strings.Contains(view, "▁") && !strings.Contains(view, "█") {
		t.Errorf("compact View() has no sparkline:\n%s", view)
	}
}
