// Package session owns the live telemetry session: the device connection
// lifecycle, routing of classified frames into the measurement store, and
// rendering after every change.
package session

import (
	"github.com/aNThiCu/AirsoftChronograph/internal/classify"
	"github.com/aNThiCu/AirsoftChronograph/internal/model"
	"github.com/aNThiCu/AirsoftChronograph/internal/window"
)

// Session holds everything the display needs. It is owned by the Manager's
// event loop and is not safe for concurrent use.
type Session struct {
	endpoint string
	state    model.ConnState
	epoch    uint64

	store     *window.Store
	lastShot  *model.ShotLogEntry
	burst     *model.BurstSummary
	config    *model.DeviceConfig
	lastDebug string
}

// New creates a closed session whose chart window holds capacity readings.
func New(capacity int) *Session {
	return &Session{store: window.NewStore(capacity)}
}

// Connecting records a connection attempt to endpoint.
func (s *Session) Connecting(endpoint string) {
	s.endpoint = endpoint
	s.state = model.StateConnecting
}

// Open starts a new epoch: the shot log and counter are reset.
func (s *Session) Open() {
	s.state = model.StateOpen
	s.epoch++
	s.Reset()
}

// Reset clears the shot log and restarts the shot counter.
func (s *Session) Reset() {
	s.store.ResetSession()
	s.lastShot = nil
}

// Close marks the connection as gone. Measurements stay visible.
func (s *Session) Close() {
	s.state = model.StateClosed
}

// State returns the connection state.
func (s *Session) State() model.ConnState { return s.state }

// Apply routes classified events into the session and reports whether
// anything visible changed.
func (s *Session) Apply(events []classify.Event) bool {
	changed := false
	for _, ev := range events {
		switch ev := ev.(type) {
		case classify.ShotReceived:
			if entry, ok := s.store.AppendShot(ev.Metric, ev.Joules); ok {
				s.lastShot = &entry
				changed = true
			}

		case classify.BurstReceived:
			burst := model.BurstSummary{RPS: ev.RPS, AvgMetric: ev.AvgMetric}
			if !ev.HasRPS && s.burst != nil {
				burst.RPS = s.burst.RPS
			}
			s.burst = &burst
			changed = true

		case classify.ConfigEchoed:
			var cfg model.DeviceConfig
			if s.config != nil {
				cfg = *s.config
			}
			if ev.BBWeight != nil {
				cfg.BBWeight = *ev.BBWeight
			}
			if ev.DistanceAcross != nil {
				cfg.DistanceAcross = *ev.DistanceAcross
			}
			s.config = &cfg
			changed = true

		case classify.DebugReceived:
			s.lastDebug = ev.Text
			changed = true
		}
	}
	return changed
}

// Snapshot copies the session for renderers.
func (s *Session) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		State:     s.state,
		Endpoint:  s.endpoint,
		Epoch:     s.epoch,
		Window:    s.store.Window(),
		Log:       s.store.Log(),
		LastDebug: s.lastDebug,
	}
	if s.lastShot != nil {
		shot := *s.lastShot
		snap.LastShot = &shot
	}
	if s.burst != nil {
		burst := *s.burst
		if burst.AvgMetric != nil {
			avg := *burst.AvgMetric
			burst.AvgMetric = &avg
		}
		snap.Burst = &burst
	}
	if s.config != nil {
		cfg := *s.config
		snap.Config = &cfg
	}
	return snap
}
