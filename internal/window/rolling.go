package window

import "math"

// DefaultCapacity is the number of readings kept for the chart.
const DefaultCapacity = 10

// Rolling is a fixed-capacity FIFO of positive readings backed by a ring
// buffer. When full, each new reading overwrites the oldest one.
//
// Rolling is not safe for concurrent use; the session event loop owns it.
type Rolling struct {
	data  []float64
	head  int // index of the oldest reading
	count int
}

// NewRolling creates a rolling window holding at most capacity readings.
// A non-positive capacity falls back to DefaultCapacity.
func NewRolling(capacity int) *Rolling {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Rolling{data: make([]float64, capacity)}
}

// Record appends a reading, evicting the oldest one when the window is
// full. Readings <= 0 and NaN are sensor noise and are ignored. Reports
// whether the window changed.
func (r *Rolling) Record(v float64) bool {
	if !(v > 0) || math.IsInf(v, 0) {
		return false
	}

	if r.count < len(r.data) {
		r.data[(r.head+r.count)%len(r.data)] = v
		r.count++
		return true
	}

	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	return true
}

// Values returns a copy of the window ordered oldest to newest.
func (r *Rolling) Values() []float64 {
	out := make([]float64, r.count)
	for i := range out {
		out[i] = r.data[(r.head+i)%len(r.data)]
	}
	return out
}

// Len returns the number of readings held.
func (r *Rolling) Len() int { return r.count }

// Cap returns the window capacity.
func (r *Rolling) Cap() int { return len(r.data) }

// Clear empties the window.
func (r *Rolling) Clear() {
	r.head = 0
	r.count = 0
}
