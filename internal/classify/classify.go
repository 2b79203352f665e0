// Package classify decodes device frames into routed events.
//
// The device protocol has no type tag: a frame is recognised by the fields it
// carries, and one frame may carry several field sets at once. Every field
// set is tested independently and each match yields its own event.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedFrame is returned when a frame is not a JSON object.
var ErrMalformedFrame = errors.New("malformed frame")

// Event is one routed result of classifying a frame.
type Event interface {
	event()
}

// ShotReceived reports a single shot.
type ShotReceived struct {
	Metric float64 // m/s
	Joules float64
}

// BurstReceived reports a burst summary.
type BurstReceived struct {
	RPS       float64
	HasRPS    bool
	AvgMetric *float64
}

// ConfigEchoed reports device settings, usually sent right after connect.
type ConfigEchoed struct {
	BBWeight       *float64
	DistanceAcross *int
}

// DebugReceived carries a free-form debug line from the device.
type DebugReceived struct {
	Text string
}

func (ShotReceived) event()  {}
func (BurstReceived) event() {}
func (ConfigEchoed) event()  {}
func (DebugReceived) event() {}

// FieldError reports a recognised field whose value has the wrong type.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Classify decodes raw and returns the events it matches, in the order
// shot, burst, config, debug.
//
// A frame that is not a JSON object yields ErrMalformedFrame and no events.
// A recognised field with a bad value suppresses only its own event; the
// returned error then joins one FieldError per bad field and the remaining
// events are still returned.
func Classify(raw []byte) ([]Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedFrame)
	}

	d := decoder{fields: fields}
	var events []Event

	if metric, ok := d.float("metric"); ok {
		joules, _ := d.float("joules")
		events = append(events, ShotReceived{Metric: metric, Joules: joules})
	}

	rps, hasRPS := d.float("rps")
	avg, hasAvg := d.float("avg_metric")
	if !hasAvg {
		avg, hasAvg = d.float("avgMetric")
	}
	if hasRPS || hasAvg {
		ev := BurstReceived{RPS: rps, HasRPS: hasRPS}
		if hasAvg {
			ev.AvgMetric = &avg
		}
		events = append(events, ev)
	}

	weight, hasWeight := d.float("bbWeight")
	distance, hasDistance := d.int("distanceAcross")
	if hasWeight || hasDistance {
		var ev ConfigEchoed
		if hasWeight {
			ev.BBWeight = &weight
		}
		if hasDistance {
			ev.DistanceAcross = &distance
		}
		events = append(events, ev)
	}

	if text, ok := d.string("debug"); ok {
		events = append(events, DebugReceived{Text: text})
	}

	return events, errors.Join(d.errs...)
}

type decoder struct {
	fields map[string]json.RawMessage
	errs   []error
}

func (d *decoder) float(name string) (float64, bool) {
	raw, ok := d.fields[name]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		d.errs = append(d.errs, &FieldError{Field: name, Err: err})
		return 0, false
	}
	return v, true
}

func (d *decoder) int(name string) (int, bool) {
	v, ok := d.float(name)
	if !ok {
		return 0, false
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		d.errs = append(d.errs, &FieldError{Field: name, Err: fmt.Errorf("%v is not an integer", v)})
		return 0, false
	}
	return int(v), true
}

func (d *decoder) string(name string) (string, bool) {
	raw, ok := d.fields[name]
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		// Keep non-string payloads verbatim.
		return string(raw), true
	}
	return v, true
}
