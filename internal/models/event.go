package models

import "time"

// Event types appearing in the history and on the bus.
const (
	EventPumpOn      = "PUMP_ON"
	EventPumpOff     = "PUMP_OFF"
	EventTelemetry   = "TELEMETRY"
	EventEngineFault = "ENGINE_FAULT"
)

// Event is a single published notification. Camera/image fields are set by
// externally observed events (e.g. motion captures); sensor fields ride
// along on telemetry events.
type Event struct {
	ID          string    `json:"id"`
	Event       string    `json:"event"`
	OccurredAt  time.Time `json:"timestamp"`
	Camera      string    `json:"camera,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Metadata    any       `json:"metadata,omitempty"`
}
