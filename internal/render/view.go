package render

import "github.com/aNThiCu/AirsoftChronograph/internal/model"

// View is the JSON view model pushed to dashboard viewers.
type View struct {
	State     model.ConnState     `json:"state"`
	Endpoint  string              `json:"endpoint"`
	Viewport  Viewport            `json:"viewport"`
	Bars      []Bar               `json:"bars"`
	SVG       string              `json:"svg"`
	Log       []string            `json:"log"`
	LastShot  *model.ShotLogEntry `json:"lastShot,omitempty"`
	Burst     *model.BurstSummary `json:"burst,omitempty"`
	Config    *model.DeviceConfig `json:"config,omitempty"`
	LastDebug string              `json:"lastDebug,omitempty"`
}

// NewView renders a session snapshot for the given viewport.
func NewView(s model.Snapshot, vp Viewport) View {
	bars := ChartGeometry(s.Window, vp)
	return View{
		State:     s.State,
		Endpoint:  s.Endpoint,
		Viewport:  vp,
		Bars:      bars,
		SVG:       SVG(bars, vp),
		Log:       LogLines(s.Log),
		LastShot:  s.LastShot,
		Burst:     s.Burst,
		Config:    s.Config,
		LastDebug: s.LastDebug,
	}
}
