package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pumpcontrol/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	pumpStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO pump_state (id, running, last_started, last_stopped, total_runtime_min, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			running=excluded.running,
			last_started=excluded.last_started,
			last_stopped=excluded.last_stopped,
			total_runtime_min=excluded.total_runtime_min,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT running, last_started, last_stopped, total_runtime_min, updated_at
		FROM pump_state WHERE id=?
	`
)

// timePtrUTC normalizes an optional timestamp to UTC for storage.
func timePtrUTC(t *time.Time) any {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return u
}

// Save updates or inserts the pump_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.PumpState) error {
	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err := r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		pumpStateRowID,
		state.Running,
		timePtrUTC(state.LastStarted),
		timePtrUTC(state.LastStopped),
		state.TotalRuntimeMinutes,
		tsUTC,
	)
	return err
}

// Load fetches the single pump_state row (id=1). Returns the zero value
// when no state has been persisted yet.
func (r *StateSQLite) Load(ctx context.Context) (models.PumpState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, pumpStateRowID)

	var s models.PumpState
	var started, stopped sql.NullTime
	if err := row.Scan(
		&s.Running,
		&started,
		&stopped,
		&s.TotalRuntimeMinutes,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PumpState{}, nil // no state yet
		}
		return models.PumpState{}, err
	}

	if started.Valid {
		t := started.Time.UTC()
		s.LastStarted = &t
	}
	if stopped.Valid {
		t := stopped.Time.UTC()
		s.LastStopped = &t
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
