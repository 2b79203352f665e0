package model

import "fmt"

// ShotLogEntry is one line of the session shot log.
type ShotLogEntry struct {
	Sequence int     `json:"sequence"` // 1-based, reset on every Open
	Metric   float64 `json:"metric"`   // speed in m/s
	Joules   float64 `json:"joules"`
}

// BurstSummary covers a run of shots reported by the device.
type BurstSummary struct {
	RPS       float64  `json:"rps"`
	AvgMetric *float64 `json:"avgMetric,omitempty"`
}

// ConnState is the state of the device connection.
type ConnState int

const (
	StateClosed ConnState = iota
	StateConnecting
	StateOpen
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// MarshalText renders the state by name in JSON views.
func (s ConnState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ConnState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed":
		*s = StateClosed
	case "connecting":
		*s = StateConnecting
	case "open":
		*s = StateOpen
	default:
		return fmt.Errorf("unknown connection state %q", text)
	}
	return nil
}

// Snapshot is an immutable copy of the session handed to renderers.
type Snapshot struct {
	State     ConnState
	Endpoint  string
	Epoch     uint64
	Window    []float64
	Log       []ShotLogEntry
	LastShot  *ShotLogEntry
	Burst     *BurstSummary
	Config    *DeviceConfig
	LastDebug string
}
