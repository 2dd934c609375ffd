package models

import "time"

// Sensor statuses derived from configured thresholds.
const (
	SensorNormal  = "normal"
	SensorWarning = "warning"
)

// SensorSnapshot holds the latest reported readings. A nil pointer means
// the sensor group has never reported; partial updates leave it nil.
type SensorSnapshot struct {
	SoilMoisture       *float64  `json:"soil_moisture,omitempty"`
	SoilMoistureStatus string    `json:"soil_moisture_status,omitempty"`
	Temperature        *float64  `json:"temperature,omitempty"`
	TemperatureStatus  string    `json:"temperature_status,omitempty"`
	Humidity           *float64  `json:"humidity,omitempty"`
	HumidityStatus     string    `json:"humidity_status,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}
