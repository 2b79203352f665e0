package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aNThiCu/AirsoftChronograph/internal/model"
)

func TestChartGeometry_Empty(t *testing.T) {
	assert.Empty(t, ChartGeometry(nil, Viewport{Width: 300, Height: 200}))
}

func TestChartGeometry_Layout(t *testing.T) {
	vp := Viewport{Width: 300, Height: 220}
	bars := ChartGeometry([]float64{50, 100, 25}, vp)
	require.Len(t, bars, 3)

	// 200px available under the label margin, bars 100px wide.
	assert.Equal(t, Bar{X: 0, Y: 120, Width: 98, Height: 100, LabelX: 50, LabelY: 115, Label: "50.0", Value: 50}, bars[0])
	assert.Equal(t, Bar{X: 100, Y: 20, Width: 98, Height: 200, LabelX: 150, LabelY: 15, Label: "100.0", Value: 100}, bars[1])
	assert.Equal(t, Bar{X: 200, Y: 170, Width: 98, Height: 50, LabelX: 250, LabelY: 165, Label: "25.0", Value: 25}, bars[2])
}

func TestChartGeometry_SmallValuesScaleAgainstOne(t *testing.T) {
	bars := ChartGeometry([]float64{0.5}, Viewport{Width: 10, Height: 120})
	require.Len(t, bars, 1)
	assert.InDelta(t, 50, bars[0].Height, 1e-9)
	assert.Equal(t, "0.5", bars[0].Label)
}

func TestChartGeometry_NarrowBarsClampWidth(t *testing.T) {
	window := make([]float64, 10)
	for i := range window {
		window[i] = float64(i + 1)
	}
	for _, bar := range ChartGeometry(window, Viewport{Width: 10, Height: 50}) {
		assert.Zero(t, bar.Width)
	}
}

func TestLogLine(t *testing.T) {
	assert.Equal(t, "#1: 92.4 m/s, 0.85 J", LogLine(model.ShotLogEntry{Sequence: 1, Metric: 92.44, Joules: 0.85}))
	assert.Equal(t, "#12: 100.0 m/s, 1 J", LogLine(model.ShotLogEntry{Sequence: 12, Metric: 100, Joules: 1}))
	assert.Equal(t, "#3: 88.1 m/s, 0.9765625 J", LogLine(model.ShotLogEntry{Sequence: 3, Metric: 88.06, Joules: 0.9765625}))
}

func TestSVG(t *testing.T) {
	vp := Viewport{Width: 200, Height: 120}
	out := SVG(ChartGeometry([]float64{10, 20}, vp), vp)

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="120"`))
	assert.Equal(t, 2, strings.Count(out, "<rect "))
	assert.Contains(t, out, `<rect x="100" y="20" width="98" height="100"/>`)
	assert.Contains(t, out, `>20.0</text>`)
	assert.True(t, strings.HasSuffix(out, "</svg>"))
}

func TestNewView(t *testing.T) {
	avg := 80.0
	s := model.Snapshot{
		State:    model.StateOpen,
		Endpoint: "ws://chrono.local/ws",
		Window:   []float64{80, 90},
		Log: []model.ShotLogEntry{
			{Sequence: 1, Metric: 80, Joules: 0.8},
			{Sequence: 2, Metric: 90, Joules: 1.01},
		},
		Burst: &model.BurstSummary{RPS: 10, AvgMetric: &avg},
	}

	v := NewView(s, Viewport{Width: 200, Height: 100})
	assert.Equal(t, model.StateOpen, v.State)
	assert.Len(t, v.Bars, 2)
	assert.Equal(t, []string{"#1: 80.0 m/s, 0.8 J", "#2: 90.0 m/s, 1.01 J"}, v.Log)
	assert.NotEmpty(t, v.SVG)
	assert.Equal(t, 10.0, v.Burst.RPS)
}
