package service

import (
	"context"

	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/models"
	"pumpcontrol/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Pump exposes the shared actuator. Start returns the previous snapshot,
// Stop returns the elapsed minutes of the run it closed (0 on a no-op).
type Pump interface {
	Start(ctx context.Context) (models.PumpState, error)
	Stop(ctx context.Context) (float64, error)
	Read(ctx context.Context) (models.PumpState, error)
}

// Scheduler turns schedule entries into timed pump runs.
type Scheduler interface {
	Submit(ctx context.Context, e models.ScheduleEntry) (models.ScheduleEntry, error)
	Cancel(id string)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]ScheduleStatus, error)
	ReconcileOnStartup(ctx context.Context) error
	Shutdown()
}

// Telemetry normalizes heterogeneous sensor updates into the snapshot.
type Telemetry interface {
	Ingest(ctx context.Context, fields map[string]any) (models.SensorSnapshot, error)
	Snapshot(ctx context.Context) (models.SensorSnapshot, error)
}

// EventLog exposes the bounded event history with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Pump
	Scheduler
	Telemetry
	EventLog
	Authorization
}

// NewService wires the repository layer and the event bus into concrete
// services. The scheduler drives the same Pump instance the handlers use.
func NewService(repos *repository.Repository, bus eventbus.Bus, log *logger.Logger) *Service {
	pump := NewPumpService(repos.StateRepo, repos.EventRepo, bus, log)
	return &Service{
		Pump:          pump,
		Scheduler:     NewEngineService(repos.ScheduleRepo, repos.EventRepo, pump, bus, log),
		Telemetry:     NewTelemetryService(repos.SensorRepo, repos.EventRepo, bus, log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth),
	}
}
