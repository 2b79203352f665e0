package model

// Message is the envelope exchanged with dashboard viewers.
// Protocol: type:<message_type>, data:<data_content>
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Viewer message types
const (
	MessageTypeView       = "view"
	MessageTypeSaveConfig = "saveConfig"
	MessageTypeError      = "error"
)

// PollRequest is the bare request string the poll-then-push device variant
// answers with a fresh set of values.
const PollRequest = "sendValues"

// DeviceConfig is the operator-editable device configuration. It is echoed
// by the device on connect and sent back verbatim on save.
type DeviceConfig struct {
	BBWeight       float64 `json:"bbWeight"`       // projectile weight in grams
	DistanceAcross int     `json:"distanceAcross"` // sensor spacing in mm
}

