package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"pumpcontrol/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSensorSQLite_Save(t *testing.T) {
	updated := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)
	moisture, temp := 38.0, 22.5

	tests := []struct {
		name       string
		snap       models.SensorSnapshot
		mockExpect func(sqlmock.Sqlmock)
		wantErr    bool
	}{
		{
			name: "partial snapshot keeps absent groups null",
			snap: models.SensorSnapshot{
				SoilMoisture: &moisture,
				Temperature:  &temp,
				UpdatedAt:    updated,
			},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOrUpdateSensorSQL)).
					WithArgs(sensorStateRowID, 38.0, 22.5, nil, updated).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "exec error propagates",
			snap: models.SensorSnapshot{UpdatedAt: updated},
			mockExpect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOrUpdateSensorSQL)).
					WithArgs(sensorStateRowID, nil, nil, nil, updated).
					WillReturnError(errors.New("db exec failed"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt // capture
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := newMockDB(t)
			defer cleanup()

			tt.mockExpect(mock)

			err := NewSensorSQLite(db).Save(context.Background(), tt.snap)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSensorSQLite_Load(t *testing.T) {
	updated := time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC)
	cols := []string{"soil_moisture", "temperature", "humidity", "updated_at"}

	t.Run("full row", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(selectSensorSQL)).
			WithArgs(sensorStateRowID).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(38.0, 22.5, 60.0, updated))

		got, err := NewSensorSQLite(db).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SoilMoisture == nil || *got.SoilMoisture != 38 {
			t.Fatalf("soil_moisture not scanned: %+v", got)
		}
		if got.Humidity == nil || *got.Humidity != 60 {
			t.Fatalf("humidity not scanned: %+v", got)
		}
	})

	t.Run("null groups stay nil", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(selectSensorSQL)).
			WithArgs(sensorStateRowID).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(nil, 22.5, nil, updated))

		got, err := NewSensorSQLite(db).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SoilMoisture != nil || got.Humidity != nil {
			t.Fatalf("expected nil groups, got %+v", got)
		}
		if got.Temperature == nil || *got.Temperature != 22.5 {
			t.Fatalf("temperature not scanned: %+v", got)
		}
	})

	t.Run("no row yet means zero snapshot", func(t *testing.T) {
		db, mock, cleanup := newMockDB(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta(selectSensorSQL)).
			WithArgs(sensorStateRowID).
			WillReturnError(sql.ErrNoRows)

		got, err := NewSensorSQLite(db).Load(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.SoilMoisture != nil || got.Temperature != nil || got.Humidity != nil {
			t.Fatalf("expected zero snapshot, got %+v", got)
		}
	})
}
