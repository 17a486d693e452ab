// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	primaryColor   = lipgloss.Color("#7D56F4")
	secondaryColor = lipgloss.Color("#5A5A5A")
	successColor   = lipgloss.Color("#04B575")
	warningColor   = lipgloss.Color("#FFCC00")
	errorColor     = lipgloss.Color("#FF5F56")
	infoColor      = lipgloss.Color("#61AFEF")
	fgColor        = lipgloss.Color("#E0E0E0")
	mutedColor     = lipgloss.Color("#6C757D")
)

// seriesColors cycles across the series of one chart.
var seriesColors = []lipgloss.Color{
	infoColor,
	successColor,
	warningColor,
	lipgloss.Color("#C678DD"),
	errorColor,
	lipgloss.Color("#56B6C2"),
}

// Styles
var (
	TitleHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	StatusKeyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	StatusValueStyle = lipgloss.NewStyle().
				Foreground(fgColor)

	// Chart frame, highlighted when selected
	ChartStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)

	SelectedChartStyle = ChartStyle.
				BorderForeground(primaryColor)

	ChartTitleStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	AxisLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	HeatStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// Key prompt
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	PromptLabelStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	LoadingStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	EmptyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			Padding(1, 2)
)

// SeriesStyle returns the style for the i-th series of a chart.
func SeriesStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)])
}
