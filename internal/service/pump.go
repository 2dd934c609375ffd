package service

import (
	"context"
	"sync"
	"time"

	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/models"
	"pumpcontrol/internal/repository"

	"github.com/google/uuid"
)

// PumpService owns the shared pump state. Start and Stop are idempotent so
// manual commands, telemetry-driven updates and engine cycles can call them
// without coordinating who owns the transition. There is deliberately no
// mutual exclusion across competing schedules: the pump ends up in whatever
// state the last writer left it (see NewEngineService).
type PumpService struct {
	mu        sync.Mutex
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	bus       eventbus.Bus
	log       *logger.Logger
}

func NewPumpService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, bus eventbus.Bus, log *logger.Logger) *PumpService {
	return &PumpService{stateRepo: stateRepo, eventRepo: eventRepo, bus: bus, log: log}
}

// Start turns the pump on and returns the state as it was before the call.
// A no-op if already running: LastStarted is left untouched.
func (s *PumpService) Start(ctx context.Context) (models.PumpState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	prev, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.PumpState{}, err
	}
	if prev.Running {
		return prev, nil
	}

	st := prev
	st.Running = true
	st.LastStarted = &now
	st.UpdatedAt = now

	if err := s.stateRepo.Save(ctx, st); err != nil {
		return models.PumpState{}, err
	}

	s.emit(ctx, models.Event{
		Event:      models.EventPumpOn,
		OccurredAt: now,
		Metadata:   st,
	})
	return prev, nil
}

// Stop turns the pump off, accumulates runtime from the open bracket and
// returns the elapsed minutes. A no-op returning 0 if already stopped.
func (s *PumpService) Stop(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !st.Running {
		return 0, nil
	}

	// Elapsed must be computed before the running bracket is cleared.
	var elapsed float64
	if st.LastStarted != nil {
		elapsed = now.Sub(*st.LastStarted).Minutes()
	}

	st.Running = false
	st.LastStopped = &now
	st.TotalRuntimeMinutes += elapsed
	st.UpdatedAt = now

	if err := s.stateRepo.Save(ctx, st); err != nil {
		return 0, err
	}

	s.emit(ctx, models.Event{
		Event:      models.EventPumpOff,
		OccurredAt: now,
		Metadata:   st,
	})
	return elapsed, nil
}

// Read returns the current snapshot.
func (s *PumpService) Read(ctx context.Context) (models.PumpState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateRepo.Load(ctx)
}

// emit appends the event to the history and fans it out. History append
// failures are logged only; the state transition already succeeded.
func (s *PumpService) emit(ctx context.Context, e models.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.eventRepo.Append(ctx, e); err != nil && s.log != nil {
		s.log.Errorw("pump_event_append_failed", "err", err, "event", e.Event)
	}
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
