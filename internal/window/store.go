package window

import "github.com/aNThiCu/AirsoftChronograph/internal/model"

// Store combines the chart window with the session shot log.
type Store struct {
	window  *Rolling
	log     []model.ShotLogEntry
	counter int
}

// NewStore creates a store whose chart window holds capacity readings.
func NewStore(capacity int) *Store {
	return &Store{window: NewRolling(capacity)}
}

// Record feeds a reading into the chart window only.
func (s *Store) Record(v float64) bool {
	return s.window.Record(v)
}

// AppendShot logs a shot and records its speed into the chart window.
// Shots with a non-positive speed are not counted; ok is false for them.
func (s *Store) AppendShot(metric, joules float64) (entry model.ShotLogEntry, ok bool) {
	if !s.window.Record(metric) {
		return model.ShotLogEntry{}, false
	}

	s.counter++
	entry = model.ShotLogEntry{
		Sequence: s.counter,
		Metric:   metric,
		Joules:   joules,
	}
	s.log = append(s.log, entry)
	return entry, true
}

// ResetSession clears the shot log and restarts the counter. The chart
// window is left as is.
func (s *Store) ResetSession() {
	s.log = nil
	s.counter = 0
}

// Window returns the chart readings oldest to newest.
func (s *Store) Window() []float64 {
	return s.window.Values()
}

// Log returns a copy of the shot log ordered by sequence.
func (s *Store) Log() []model.ShotLogEntry {
	out := make([]model.ShotLogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Counter returns the sequence number of the last logged shot.
func (s *Store) Counter() int { return s.counter }
