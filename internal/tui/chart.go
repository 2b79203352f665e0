package tui

import (
	"math"
	"strings"

	"github.com/aNThiCu/AirsoftChronograph/internal/render"
)

// Terminal cells are mapped onto the pixel chart geometry at a fixed size.
const (
	cellWidth  = 8
	cellHeight = 16
)

// chartRows lays the window out on a cols x rows character grid using the
// same geometry as the web chart. Each bar's label sits on the row above it.
func chartRows(window []float64, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", cols))
	}

	vp := render.Viewport{Width: float64(cols * cellWidth), Height: float64(rows * cellHeight)}
	for _, b := range render.ChartGeometry(window, vp) {
		x0 := int(math.Round(b.X / cellWidth))
		x1 := int((b.X + b.Width) / cellWidth)
		if x1 <= x0 {
			x1 = x0 + 1
		}
		top := int(math.Round(b.Y / cellHeight))

		for y := max(top, 0); y < rows; y++ {
			for x := x0; x < x1 && x < cols; x++ {
				grid[y][x] = '█'
			}
		}

		labelRow := top - 1
		if labelRow < 0 {
			labelRow = 0
		}
		start := int(b.LabelX/cellWidth) - len(b.Label)/2
		for i, r := range b.Label {
			if x := start + i; x >= 0 && x < cols {
				grid[labelRow][x] = r
			}
		}
	}

	out := make([]string, rows)
	for y, row := range grid {
		out[y] = string(row)
	}
	return out
}
