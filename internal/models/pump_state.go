package models

import "time"

// PumpState is the authoritative snapshot of the watering pump.
// TotalRuntimeMinutes only grows, and only when a stop is recorded.
type PumpState struct {
	Running             bool       `json:"running"`
	LastStarted         *time.Time `json:"last_started,omitempty"`
	LastStopped         *time.Time `json:"last_stopped,omitempty"`
	TotalRuntimeMinutes float64    `json:"total_runtime_minutes"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
