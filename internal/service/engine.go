package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/models"
	"pumpcontrol/internal/repository"

	"github.com/google/uuid"
)

const (
	timeOfDayLayout = "15:04"

	// Pause between on/off cycles within one firing.
	defaultCycleGap = 1 * time.Minute
)

// Validation errors surfaced synchronously to the submitter.
var (
	ErrInvalidStartTime = errors.New("invalid start_time: must be RFC3339 or HH:MM")
	ErrInvalidDuration  = errors.New("invalid duration_minutes: must be > 0")
)

// ScheduleStatus is an entry plus its derived lifecycle status.
type ScheduleStatus struct {
	models.ScheduleEntry
	Status string `json:"status"`
}

// entryTimer is one armed deferred firing. quit is closed by Cancel,
// Remove, re-arming or Shutdown; firings poll it at every suspend point.
type entryTimer struct {
	timer *time.Timer
	quit  chan struct{}
}

// EngineService owns the id->timer registry and executes firings. Entries
// are persisted before a timer is armed, so a crash in between is
// recovered by ReconcileOnStartup from what was durably written.
type EngineService struct {
	mu        sync.Mutex
	timers    map[string]*entryTimer
	firing    map[string]bool
	completed map[string]bool

	scheduleRepo repository.ScheduleRepo
	eventRepo    repository.EventRepo
	pump         Pump
	bus          eventbus.Bus
	log          *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	cycleGap time.Duration
	now      func() time.Time
}

// NewEngineService returns a stopped-clock engine: nothing fires until
// Submit or ReconcileOnStartup arms timers. Overlapping firings all drive
// the same pump last-writer-wins; exclusive ownership of the actuator is
// a product decision this engine intentionally does not make.
func NewEngineService(scheduleRepo repository.ScheduleRepo, eventRepo repository.EventRepo, pump Pump, bus eventbus.Bus, log *logger.Logger) *EngineService {
	ctx, cancel := context.WithCancel(context.Background())
	return &EngineService{
		timers:       map[string]*entryTimer{},
		firing:       map[string]bool{},
		completed:    map[string]bool{},
		scheduleRepo: scheduleRepo,
		eventRepo:    eventRepo,
		pump:         pump,
		bus:          bus,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
		cycleGap:     defaultCycleGap,
		now:          time.Now,
	}
}

// computeFireInstant resolves an entry's StartTime against now: an RFC3339
// instant is taken as-is; an HH:MM wall-clock time maps to its next future
// occurrence, rolling forward exactly one day when it is at or before now.
func computeFireInstant(startTime string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, startTime); err == nil {
		return t, nil
	}
	tod, err := time.Parse(timeOfDayLayout, startTime)
	if err != nil {
		return time.Time{}, ErrInvalidStartTime
	}
	candidate := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate, nil
}

// Submit validates, persists, then arms a single deferred timer for the
// entry. Nothing is persisted or armed on validation failure, and nothing
// is armed on persistence failure.
func (s *EngineService) Submit(ctx context.Context, e models.ScheduleEntry) (models.ScheduleEntry, error) {
	if e.DurationMinutes <= 0 {
		return models.ScheduleEntry{}, ErrInvalidDuration
	}
	if e.StartTime == "" {
		return models.ScheduleEntry{}, ErrInvalidStartTime
	}
	now := s.now()
	fireAt, err := computeFireInstant(e.StartTime, now)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	if e.RepeatCount < 1 {
		e.RepeatCount = 1
	}
	e.ID = uuid.NewString()
	e.CreatedAt = now.UTC()

	entries, err := s.scheduleRepo.LoadAll(ctx)
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("load schedule entries: %w", err)
	}
	entries = append(entries, e)
	if err := s.scheduleRepo.SaveAll(ctx, entries); err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("persist schedule entry: %w", err)
	}

	s.arm(e, delayUntil(fireAt, now))
	if s.log != nil {
		s.log.Infow("schedule_armed", "entry_id", e.ID, "fire_at", fireAt, "repeat", e.RepeatCount)
	}
	return e, nil
}

// Cancel clears the outstanding timer for id, if any. Idempotent. An
// already-started firing is signalled too and stops at its next suspend
// point, after closing its current on/off bracket.
func (s *EngineService) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

func (s *EngineService) cancelLocked(id string) {
	et, ok := s.timers[id]
	if !ok {
		return
	}
	et.timer.Stop()
	close(et.quit)
	delete(s.timers, id)
}

// Remove cancels id and rewrites the store without it.
func (s *EngineService) Remove(ctx context.Context, id string) error {
	s.Cancel(id)

	entries, err := s.scheduleRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load schedule entries: %w", err)
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if err := s.scheduleRepo.SaveAll(ctx, kept); err != nil {
		return fmt.Errorf("persist schedule entries: %w", err)
	}

	s.mu.Lock()
	delete(s.completed, id)
	s.mu.Unlock()
	return nil
}

// List returns all stored entries with their derived status.
func (s *EngineService) List(ctx context.Context) ([]ScheduleStatus, error) {
	entries, err := s.scheduleRepo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduleStatus, 0, len(entries))
	for _, e := range entries {
		status := models.SchedulePending
		switch {
		case s.firing[e.ID]:
			status = models.ScheduleFiring
		case s.completed[e.ID]:
			status = models.ScheduleCompleted
		}
		out = append(out, ScheduleStatus{ScheduleEntry: e, Status: status})
	}
	return out, nil
}

// ReconcileOnStartup re-arms a timer for every persisted entry, computing
// fire instants the same way Submit does. An HH:MM entry whose moment has
// passed rolls to the next day; an absolute instant already in the past
// arms with zero delay and fires immediately.
func (s *EngineService) ReconcileOnStartup(ctx context.Context) error {
	entries, err := s.scheduleRepo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load schedule entries: %w", err)
	}
	now := s.now()
	for _, e := range entries {
		fireAt, err := computeFireInstant(e.StartTime, now)
		if err != nil {
			if s.log != nil {
				s.log.Errorw("schedule_reconcile_skipped", "err", err, "entry_id", e.ID, "start_time", e.StartTime)
			}
			continue
		}
		if e.RepeatCount < 1 {
			e.RepeatCount = 1
		}
		s.arm(e, delayUntil(fireAt, now))
		if s.log != nil {
			s.log.Infow("schedule_rearmed", "entry_id", e.ID, "fire_at", fireAt)
		}
	}
	return nil
}

// Shutdown stops every armed timer and signals in-flight firings to wind
// down at their next suspend point.
func (s *EngineService) Shutdown() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.cancelLocked(id)
	}
}

// delayUntil floors at zero: a fire instant in the past means "now".
func delayUntil(fireAt, now time.Time) time.Duration {
	d := fireAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// arm registers a single deferred timer for the entry, replacing (and
// cancelling) any timer already armed under the same id.
func (s *EngineService) arm(e models.ScheduleEntry, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(e.ID)
	delete(s.completed, e.ID)

	quit := make(chan struct{})
	s.timers[e.ID] = &entryTimer{
		quit:  quit,
		timer: time.AfterFunc(delay, func() { s.fire(e, quit) }),
	}
}

// fire runs one firing to completion. Faults are contained here: whatever
// goes wrong, the entry ends up completed and the process keeps serving
// other timers.
func (s *EngineService) fire(e models.ScheduleEntry, quit chan struct{}) {
	s.mu.Lock()
	s.firing[e.ID] = true
	s.mu.Unlock()

	// The registry entry stays in place for the whole firing so Cancel can
	// still close the quit channel and interrupt at the next suspend point.
	defer func() {
		if r := recover(); r != nil {
			s.recordFault(e, fmt.Errorf("panic: %v", r))
		}
		s.mu.Lock()
		if et, ok := s.timers[e.ID]; ok && et.quit == quit {
			delete(s.timers, e.ID)
		}
		delete(s.firing, e.ID)
		// A re-armed entry is pending again, not completed.
		if _, rearmed := s.timers[e.ID]; !rearmed {
			s.completed[e.ID] = true
		}
		s.mu.Unlock()
	}()

	if err := s.executeFiring(e, quit); err != nil {
		s.recordFault(e, err)
	}
}

// executeFiring drives RepeatCount start/stop cycles against the pump.
// Each start/stop only transitions from the state it actually observes
// (the pump calls are idempotent), so a manual stop mid-cycle is not
// fought. Cancellation is honoured at every wait; a cancelled cycle still
// closes its bracket with a stop.
func (s *EngineService) executeFiring(e models.ScheduleEntry, quit chan struct{}) error {
	runFor := time.Duration(e.DurationMinutes * float64(time.Minute))

	for i := 0; i < e.RepeatCount; i++ {
		if s.interrupted(quit) {
			return nil
		}
		if _, err := s.pump.Start(s.ctx); err != nil {
			return fmt.Errorf("cycle %d start: %w", i+1, err)
		}
		cancelled := !s.wait(runFor, quit)
		if _, err := s.pump.Stop(s.ctx); err != nil {
			return fmt.Errorf("cycle %d stop: %w", i+1, err)
		}
		if cancelled || i == e.RepeatCount-1 {
			return nil
		}
		if !s.wait(s.cycleGap, quit) {
			return nil
		}
	}
	return nil
}

// wait suspends for d; false means the firing was cancelled or the engine
// is shutting down.
func (s *EngineService) wait(d time.Duration, quit <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-quit:
		return false
	case <-s.ctx.Done():
		return false
	}
}

func (s *EngineService) interrupted(quit <-chan struct{}) bool {
	select {
	case <-quit:
		return true
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// recordFault logs an engine-level fault and leaves a trace in the event
// history. It never propagates: the firing is abandoned, not retried.
func (s *EngineService) recordFault(e models.ScheduleEntry, err error) {
	if s.log != nil {
		s.log.Errorw("engine_firing_failed", "err", err, "entry_id", e.ID)
	}
	ev := models.Event{
		ID:         uuid.NewString(),
		Event:      models.EventEngineFault,
		OccurredAt: time.Now().UTC(),
		Metadata:   map[string]any{"entry_id": e.ID, "error": err.Error()},
	}
	// Background: the fault trace should land even mid-shutdown.
	if aerr := s.eventRepo.Append(context.Background(), ev); aerr != nil && s.log != nil {
		s.log.Errorw("engine_fault_append_failed", "err", aerr)
	}
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
