package models

import "time"

// Schedule entry statuses, derived by the engine and never persisted.
const (
	SchedulePending   = "pending"
	ScheduleFiring    = "firing"
	ScheduleCompleted = "completed"
)

// ScheduleEntry describes one timed watering run. StartTime is either an
// RFC3339 instant or a wall-clock "HH:MM" that the engine maps to its next
// future occurrence. RepeatCount is on/off cycles per firing, not days.
type ScheduleEntry struct {
	ID              string    `json:"id"`
	StartTime       string    `json:"start_time"`
	DurationMinutes float64   `json:"duration_minutes"`
	RepeatCount     int       `json:"repeat_count"`
	CreatedAt       time.Time `json:"created_at"`
}
