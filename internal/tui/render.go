// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Voxer/zag-sub000/internal/axis"
	"github.com/Voxer/zag-sub000/internal/chart"
)

const (
	yLabelWidth = 8
	// chartChrome is the border, title and x label rows around a plot.
	chartChrome = 4
	minPlotRows = 3
)

// View renders the viewer
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleHeaderStyle.Render("zag"))
	b.WriteString("\n")

	used := 1 + 2 // header and status bar
	if m.prompt != promptNone {
		used += 3
	}
	b.WriteString(m.renderCharts(m.height - used))

	if m.prompt != promptNone {
		b.WriteString("\n")
		b.WriteString(m.renderPrompt())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderCharts stacks as many charts as fit in rows, keeping the selected
// chart visible.
func (m Model) renderCharts(rows int) string {
	charts := m.sess.Charts()
	if len(charts) == 0 {
		return EmptyStyle.Render("No charts. Press / to graph a key or d to open a dashboard.")
	}
	if rows < minPlotRows+chartChrome {
		return m.renderCompact(charts)
	}

	fit := rows / (minPlotRows + chartChrome)
	if fit < 1 {
		fit = 1
	}
	if fit > len(charts) {
		fit = len(charts)
	}
	selected := clampInt(m.selected, 0, len(charts)-1)
	first := 0
	if selected >= fit {
		first = selected - fit + 1
	}
	plotRows := rows/fit - chartChrome
	if plotRows < minPlotRows {
		plotRows = minPlotRows
	}
	plotCols := m.plotCols()

	parts := make([]string, 0, fit)
	for i := first; i < first+fit; i++ {
		parts = append(parts, m.renderChart(charts[i], i == selected, plotCols, plotRows))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// plotCols is the number of canvas columns a chart plot gets.
func (m Model) plotCols() int {
	if cols := m.width - yLabelWidth - 6; cols > 10 {
		return cols
	}
	return 10
}

// yLabels places round tick values of yr on the rows they fall on. Rows
// without a tick get an empty label.
func yLabels(yr axis.Range, rows int) []string {
	labels := make([]string, rows)
	if rows <= 0 {
		return labels
	}
	scale := axis.Scale{Domain: yr, Pixels: float64(rows - 1), Inverted: true}
	for _, v := range axis.Ticks(yr, max(rows/3, 1)) {
		row := int(math.Round(scale.ToPixel(v)))
		if row < 0 || row >= rows || labels[row] != "" {
			continue
		}
		labels[row] = formatMetricValue(v)
	}
	return labels
}

func (m Model) renderChart(c *chart.PointChart, selected bool, cols, rows int) string {
	var b strings.Builder
	b.WriteString(m.renderChartTitle(c))
	b.WriteString("\n")

	cv := drawChart(c, cols, rows)
	labels := yLabels(c.YAxis().Current(), rows)
	for row := 0; row < rows; row++ {
		b.WriteString(AxisLabelStyle.Render(PadLeft(labels[row], yLabelWidth)))
		b.WriteString(AxisLabelStyle.Render(" │"))
		b.WriteString(renderRow(cv, row))
		b.WriteString("\n")
	}

	xr := c.XAxis().Current()
	span := time.Duration(xr.Span()) * time.Millisecond
	left, right := formatAxisTime(xr.Low, span), formatAxisTime(xr.High, span)
	gap := cols - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(strings.Repeat(" ", yLabelWidth+2))
	b.WriteString(AxisLabelStyle.Render(left + strings.Repeat(" ", gap) + right))

	style := ChartStyle
	if selected {
		style = SelectedChartStyle
	}
	return style.Render(b.String())
}

// renderCompact shows one sparkline row per chart when there is no room
// for plots.
func (m Model) renderCompact(charts []*chart.PointChart) string {
	titleWidth := clampInt(m.width/3, 10, 40)
	lines := make([]string, len(charts))
	for i, c := range charts {
		marker := "  "
		if i == clampInt(m.selected, 0, len(charts)-1) {
			marker = StatusKeyStyle.Render("> ")
		}
		lines[i] = marker + ChartTitleStyle.Render(PadOrTruncate(c.Title(), titleWidth)) + " " +
			SeriesStyle(0).Render(generateSparkline(visibleValues(c), m.width-titleWidth-4))
	}
	return strings.Join(lines, "\n")
}

// visibleValues returns the first series' values inside the time window.
func visibleValues(c *chart.PointChart) []float64 {
	sets := c.Sets()
	if len(sets) == 0 {
		return nil
	}
	xr := c.XAxis().Current()
	var out []float64
	for _, p := range sets[0].Points() {
		if xr.Contains(p.X) {
			out = append(out, p.Y)
		}
	}
	return out
}

func (m Model) renderChartTitle(c *chart.PointChart) string {
	parts := []string{ChartTitleStyle.Render(c.Title())}
	keys := c.Keys()
	if len(keys) > 1 {
		for i, k := range keys {
			parts = append(parts, SeriesStyle(i).Render("● "+k.MKey()))
		}
	}
	if d := c.XAxis().Depth(); d > 0 {
		parts = append(parts, AxisLabelStyle.Render(fmt.Sprintf("zoom %d", d)))
	}
	return strings.Join(parts, "  ")
}

// renderRow colors each run of cells by the series that drew it.
func renderRow(cv *canvas, row int) string {
	var b strings.Builder
	cells, owners := cv.cells[row], cv.owner[row]
	start := 0
	for i := 1; i <= len(cells); i++ {
		if i < len(cells) && owners[i] == owners[start] {
			continue
		}
		run := string(cells[start:i])
		switch o := owners[start]; {
		case o < 0:
			b.WriteString(run)
		case cv.heat[o]:
			b.WriteString(HeatStyle.Render(run))
		default:
			b.WriteString(SeriesStyle(o).Render(run))
		}
		start = i
	}
	return b.String()
}

func (m Model) renderPrompt() string {
	label := PromptLabelStyle.Render(m.prompt.label())
	return PromptStyle.Width(clampInt(m.width-4, 20, 400)).Render(label + m.input.View())
}

// renderStatusBar shows what is graphed, load state and key hints. Errors
// are shown here without clearing the charts.
func (m Model) renderStatusBar() string {
	st := m.sess.ChartSet().State()
	var parts []string

	what := st.Layout.String()
	switch {
	case st.Dashboard != "":
		what = "dashboard " + st.Dashboard
	case len(st.Keys) > 0:
		what = TruncateWithEllipsis(strings.Join(st.Keys, ","), 40)
	}
	parts = append(parts, StatusKeyStyle.Render("Showing: ")+StatusValueStyle.Render(what))

	if c := m.current(); c != nil {
		span := time.Duration(c.XAxis().Current().Span()) * time.Millisecond
		parts = append(parts, StatusKeyStyle.Render("Window: ")+StatusValueStyle.Render(formatSpan(span)))
		parts = append(parts, StatusKeyStyle.Render("Chart: ")+
			StatusValueStyle.Render(fmt.Sprintf("%d/%d", clampInt(m.selected, 0, st.Charts-1)+1, st.Charts)))
	}
	parts = append(parts, StatusKeyStyle.Render("Loaded: ")+StatusValueStyle.Render(formatSince(m.lastLoaded, m.opts.Now())))

	if m.loading {
		parts = append(parts, LoadingStyle.Render("loading..."))
	}
	row1 := ansi.Truncate(strings.Join(parts, "  │  "), clampInt(m.width-2, 10, 400), "…")

	var row2 string
	switch {
	case m.err != nil:
		row2 = ErrorStyle.Render(TruncateWithEllipsis(m.err.Error(), clampInt(m.width-4, 10, 400)))
	case m.status != "":
		row2 = StatusValueStyle.Render(m.status)
	default:
		row2 = renderHints()
	}
	return StatusBarStyle.Width(m.width).Render(row1 + "\n" + row2)
}

var hints = [][2]string{
	{"/", "graph"},
	{"a", "add"},
	{"x", "remove"},
	{"d", "dashboard"},
	{"+/-", "zoom"},
	{"h/l", "pan"},
	{"u", "undo zoom"},
	{"tab", "next"},
	{"r", "reload"},
	{"y", "copy keys"},
	{"q", "quit"},
}

func renderHints() string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = HelpKeyStyle.Render(h[0]) + " " + HelpDescStyle.Render(h[1])
	}
	return strings.Join(parts, "  ")
}
