// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"math"
	"strings"

	"github.com/Voxer/zag-sub000/internal/chart"
	"github.com/Voxer/zag-sub000/internal/pointset"
)

var heatShades = []rune{' ', '░', '▒', '▓', '█'}

const (
	lineRune = '•'
	areaRune = '█'
)

// canvas is a character grid. Each cell remembers which series drew it so
// the renderer can color it.
type canvas struct {
	w, h  int
	cells [][]rune
	owner [][]int
	heat  map[int]bool
}

func newCanvas(w, h int) *canvas {
	cv := &canvas{w: w, h: h, cells: make([][]rune, h), owner: make([][]int, h), heat: make(map[int]bool)}
	for row := range cv.cells {
		cv.cells[row] = []rune(strings.Repeat(" ", w))
		cv.owner[row] = make([]int, w)
		for col := range cv.owner[row] {
			cv.owner[row][col] = -1
		}
	}
	return cv
}

func (cv *canvas) set(col, row int, r rune, owner int) {
	if col < 0 || col >= cv.w || row < 0 || row >= cv.h {
		return
	}
	cv.cells[row][col] = r
	cv.owner[row][col] = owner
}

// Row returns one row as plain text.
func (cv *canvas) Row(row int) string {
	return string(cv.cells[row])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (cv *canvas) col(x float64) int {
	return clampInt(int(x), 0, cv.w-1)
}

func (cv *canvas) row(y float64) int {
	return clampInt(int(math.Floor(y)), 0, cv.h-1)
}

// drawChart plots every series of c onto a w x h canvas.
func drawChart(c *chart.PointChart, w, h int) *canvas {
	cv := newCanvas(w, h)
	if w <= 0 || h <= 0 {
		return cv
	}
	for i, fs := range c.Frame(float64(w), float64(h)) {
		switch {
		case fs.Kind == pointset.KindHeat:
			cv.heat[i] = true
			cv.drawHeat(fs.Samples, i)
		case c.Renderer() == chart.RendererArea:
			cv.drawArea(fs.Samples, i)
		default:
			cv.drawLine(fs.Samples, i)
		}
	}
	return cv
}

// drawLine keeps the highest value per column.
func (cv *canvas) drawLine(samples []chart.Sample, owner int) {
	top := make(map[int]int)
	for _, s := range samples {
		col, row := cv.col(s.X), cv.row(s.Y)
		if r, seen := top[col]; !seen || row < r {
			top[col] = row
		}
	}
	for col, row := range top {
		cv.set(col, row, lineRune, owner)
	}
}

// drawArea fills from each sample's base to its top.
func (cv *canvas) drawArea(samples []chart.Sample, owner int) {
	for _, s := range samples {
		col := cv.col(s.X)
		for row := cv.row(s.Y); row <= cv.row(s.Base); row++ {
			cv.set(col, row, areaRune, owner)
		}
	}
}

// drawHeat shades each cell by its gradient; the darkest cell wins when
// several land on one character.
func (cv *canvas) drawHeat(samples []chart.Sample, owner int) {
	shade := make(map[[2]int]int)
	for _, s := range samples {
		idx := clampInt(int(math.Ceil(s.Gradient*float64(len(heatShades)-1))), 0, len(heatShades)-1)
		if idx == 0 {
			continue
		}
		col := cv.col(s.X)
		for row := cv.row(s.Y); row <= cv.row(s.Base); row++ {
			k := [2]int{col, row}
			if idx > shade[k] {
				shade[k] = idx
			}
		}
	}
	for k, idx := range shade {
		cv.set(k[0], k[1], heatShades[idx], owner)
	}
}
