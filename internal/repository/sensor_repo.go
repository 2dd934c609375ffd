package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pumpcontrol/internal/models"
)

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

const (
	sensorStateRowID = 1

	insertOrUpdateSensorSQL = `
		INSERT INTO sensor_state (id, soil_moisture, temperature, humidity, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			soil_moisture=excluded.soil_moisture,
			temperature=excluded.temperature,
			humidity=excluded.humidity,
			updated_at=excluded.updated_at
	`

	selectSensorSQL = `
		SELECT soil_moisture, temperature, humidity, updated_at
		FROM sensor_state WHERE id=?
	`
)

// Save upserts the single sensor_state row. Statuses are derived, not stored.
func (r *SensorSQLite) Save(ctx context.Context, s models.SensorSnapshot) error {
	tsUTC := s.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateSensorSQL,
		sensorStateRowID,
		s.SoilMoisture,
		s.Temperature,
		s.Humidity,
		tsUTC,
	)
	return err
}

// Load fetches the sensor snapshot. Returns the zero value when nothing
// has been reported yet.
func (r *SensorSQLite) Load(ctx context.Context) (models.SensorSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSensorSQL, sensorStateRowID)

	var s models.SensorSnapshot
	var moisture, temp, hum sql.NullFloat64
	if err := row.Scan(&moisture, &temp, &hum, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SensorSnapshot{}, nil
		}
		return models.SensorSnapshot{}, err
	}

	if moisture.Valid {
		v := moisture.Float64
		s.SoilMoisture = &v
	}
	if temp.Valid {
		v := temp.Float64
		s.Temperature = &v
	}
	if hum.Valid {
		v := hum.Float64
		s.Humidity = &v
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
