package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pumpcontrol/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite { return &ScheduleSQLite{db: db} }

// Ensure implementation of ScheduleRepo interface at compile time.
var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	deleteEntriesSQL = `DELETE FROM schedule_entries`

	insertEntrySQL = `
		INSERT INTO schedule_entries (id, start_time, duration_min, repeat_count, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectEntriesSQL = `
		SELECT id, start_time, duration_min, repeat_count, created_at
		FROM schedule_entries ORDER BY position ASC
	`
)

// LoadAll returns every persisted entry in the order it was saved.
func (r *ScheduleSQLite) LoadAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("select schedule entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.ScheduleEntry, 0, 16)
	for rows.Next() {
		var e models.ScheduleEntry
		if err := rows.Scan(&e.ID, &e.StartTime, &e.DurationMinutes, &e.RepeatCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAll replaces the whole collection in one transaction. The position
// column records slice order so LoadAll round-trips it.
func (r *ScheduleSQLite) SaveAll(ctx context.Context, entries []models.ScheduleEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule save: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, deleteEntriesSQL); err != nil {
		return fmt.Errorf("clear schedule entries: %w", err)
	}

	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, insertEntrySQL,
			e.ID,
			e.StartTime,
			e.DurationMinutes,
			e.RepeatCount,
			e.CreatedAt.UTC(),
			i,
		); err != nil {
			return fmt.Errorf("insert schedule entry %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule save: %w", err)
	}
	return nil
}
