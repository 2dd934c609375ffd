package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/models"
	"pumpcontrol/internal/repository"

	"github.com/google/uuid"
)

// Status thresholds. Temperature outside (10, 35) is a warning; soil
// moisture below 20% and humidity outside (20, 90) likewise.
const (
	tempWarnLowC      = 10.0
	tempWarnHighC     = 35.0
	moistureWarnBelow = 20.0
	humidityWarnLow   = 20.0
	humidityWarnHigh  = 90.0
)

// Canonical sensor keys.
const (
	keySoilMoisture = "soil_moisture"
	keyTemperature  = "temperature"
	keyHumidity     = "humidity"
)

// sensorFieldSynonyms maps every producer spelling to its canonical key.
// Manual API calls, embedded devices and imported third-party messages all
// funnel through this table.
var sensorFieldSynonyms = map[string]string{
	"soil_moisture": keySoilMoisture,
	"soilmoisture":  keySoilMoisture,
	"soilMoisture":  keySoilMoisture,
	"moisture":      keySoilMoisture,
	"soil":          keySoilMoisture,
	"soil_humidity": keySoilMoisture,
	"temperature":   keyTemperature,
	"temp":          keyTemperature,
	"air_temp":      keyTemperature,
	"humidity":      keyHumidity,
	"hum":           keyHumidity,
	"air_humidity":  keyHumidity,
}

var ErrNoSensorFields = errors.New("no recognized sensor fields in update")

type TelemetryService struct {
	sensorRepo repository.SensorRepo
	eventRepo  repository.EventRepo
	bus        eventbus.Bus
	log        *logger.Logger
}

func NewTelemetryService(sensorRepo repository.SensorRepo, eventRepo repository.EventRepo, bus eventbus.Bus, log *logger.Logger) *TelemetryService {
	return &TelemetryService{sensorRepo: sensorRepo, eventRepo: eventRepo, bus: bus, log: log}
}

// toFloat accepts the value encodings producers actually send: JSON
// numbers, integers, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeSensorFields reduces a raw update to canonical key -> value.
// Unknown keys and non-numeric values are dropped.
func normalizeSensorFields(fields map[string]any) map[string]float64 {
	out := make(map[string]float64, 3)
	for k, v := range fields {
		canonical, ok := sensorFieldSynonyms[k]
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			out[canonical] = f
		}
	}
	return out
}

// Ingest merges a partial update into the stored snapshot. Groups absent
// from the update are left untouched. Pure normalization: the pump and the
// scheduler are never consulted here.
func (s *TelemetryService) Ingest(ctx context.Context, fields map[string]any) (models.SensorSnapshot, error) {
	normalized := normalizeSensorFields(fields)
	if len(normalized) == 0 {
		return models.SensorSnapshot{}, ErrNoSensorFields
	}

	snap, err := s.sensorRepo.Load(ctx)
	if err != nil {
		return models.SensorSnapshot{}, err
	}

	if v, ok := normalized[keySoilMoisture]; ok {
		snap.SoilMoisture = &v
	}
	if v, ok := normalized[keyTemperature]; ok {
		snap.Temperature = &v
	}
	if v, ok := normalized[keyHumidity]; ok {
		snap.Humidity = &v
	}
	snap.UpdatedAt = time.Now().UTC()

	if err := s.sensorRepo.Save(ctx, snap); err != nil {
		return models.SensorSnapshot{}, err
	}
	deriveStatuses(&snap)

	ev := models.Event{
		ID:          uuid.NewString(),
		Event:       models.EventTelemetry,
		OccurredAt:  snap.UpdatedAt,
		Temperature: snap.Temperature,
		Humidity:    snap.Humidity,
	}
	if err := s.eventRepo.Append(ctx, ev); err != nil && s.log != nil {
		s.log.Errorw("telemetry_event_append_failed", "err", err)
	}
	if s.bus != nil {
		s.bus.Publish(ev)
	}

	return snap, nil
}

// Snapshot returns the stored readings with statuses derived.
func (s *TelemetryService) Snapshot(ctx context.Context) (models.SensorSnapshot, error) {
	snap, err := s.sensorRepo.Load(ctx)
	if err != nil {
		return models.SensorSnapshot{}, err
	}
	deriveStatuses(&snap)
	return snap, nil
}

// deriveStatuses fills the status fields for every reported group.
func deriveStatuses(s *models.SensorSnapshot) {
	if s.Temperature != nil {
		s.TemperatureStatus = models.SensorNormal
		if *s.Temperature < tempWarnLowC || *s.Temperature > tempWarnHighC {
			s.TemperatureStatus = models.SensorWarning
		}
	}
	if s.SoilMoisture != nil {
		s.SoilMoistureStatus = models.SensorNormal
		if *s.SoilMoisture < moistureWarnBelow {
			s.SoilMoistureStatus = models.SensorWarning
		}
	}
	if s.Humidity != nil {
		s.HumidityStatus = models.SensorNormal
		if *s.Humidity < humidityWarnLow || *s.Humidity > humidityWarnHigh {
			s.HumidityStatus = models.SensorWarning
		}
	}
}
