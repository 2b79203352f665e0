// Package render turns session state into display primitives. Everything
// here is a pure function of its inputs.
package render

import (
	"math"
	"strconv"
)

const (
	// TopMargin is the space kept above the tallest bar for its label.
	TopMargin = 20
	// BarGap is the horizontal gap between neighbouring bars.
	BarGap = 2
	// LabelOffset is the distance between a bar top and its label baseline.
	LabelOffset = 5
)

// Viewport is the drawing area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bar is one chart bar with the position of its value label.
type Bar struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	LabelX float64 `json:"labelX"`
	LabelY float64 `json:"labelY"`
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
}

// ChartGeometry lays out one bar per reading, oldest on the left. Heights
// are scaled against the largest reading, or 1 when every reading is
// smaller, so an empty or all-small window never divides by zero.
func ChartGeometry(window []float64, vp Viewport) []Bar {
	if len(window) == 0 {
		return nil
	}

	barWidth := vp.Width / float64(len(window))
	available := math.Max(vp.Height-TopMargin, 0)

	maxVal := 1.0
	for _, v := range window {
		maxVal = math.Max(maxVal, v)
	}

	bars := make([]Bar, len(window))
	for i, v := range window {
		height := (v / maxVal) * available
		x := float64(i) * barWidth
		y := vp.Height - height
		bars[i] = Bar{
			X:      x,
			Y:      y,
			Width:  math.Max(barWidth-BarGap, 0),
			Height: height,
			LabelX: x + barWidth/2,
			LabelY: y - LabelOffset,
			Label:  strconv.FormatFloat(v, 'f', 1, 64),
			Value:  v,
		}
	}
	return bars
}
