package repository

import (
	"context"
	"database/sql"
	"time"

	"pumpcontrol/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// StateRepo persists the single pump state row.
type StateRepo interface {
	Save(ctx context.Context, s models.PumpState) error
	Load(ctx context.Context) (models.PumpState, error)
}

// ScheduleRepo is the durable schedule store. SaveAll replaces the whole
// collection atomically and must be durable before it returns; LoadAll
// preserves the order entries were saved in.
type ScheduleRepo interface {
	LoadAll(ctx context.Context) ([]models.ScheduleEntry, error)
	SaveAll(ctx context.Context, entries []models.ScheduleEntry) error
}

// EventRepo is the bounded append-only event history.
type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.Event, error)
}

// SensorRepo persists the single sensor snapshot row.
type SensorRepo interface {
	Save(ctx context.Context, s models.SensorSnapshot) error
	Load(ctx context.Context) (models.SensorSnapshot, error)
}

type Repository struct {
	StateRepo    StateRepo
	ScheduleRepo ScheduleRepo
	EventRepo    EventRepo
	SensorRepo   SensorRepo
	Auth         Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo:    NewStateSQLite(db),
		ScheduleRepo: NewScheduleSQLite(db),
		EventRepo:    NewEventSQLite(db),
		SensorRepo:   NewSensorSQLite(db),
		Auth:         NewUserRepository(db),
	}
}
