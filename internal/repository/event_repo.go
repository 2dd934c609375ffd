package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"pumpcontrol/internal/models"

	"github.com/google/uuid"
)

// historyLimit bounds the retained event history; older rows are pruned
// oldest-first on every append.
const historyLimit = 200

// occurredAtLayout is the single serialization for the occurred_at column;
// Append writes it and List binds range bounds with it.
const occurredAtLayout = "2006-01-02 15:04:05"

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertEventSQL = `
		INSERT INTO events (id, occurred_at, type, camera, image_url, temperature, humidity, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	pruneEventsSQL = `
		DELETE FROM events WHERE id NOT IN (
			SELECT id FROM events ORDER BY occurred_at DESC LIMIT ?
		)
	`
)

// nullStr maps "" to NULL for optional text columns.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Append inserts a new event. If ID or OccurredAt are empty, they're set.
func (r *EventSQLite) Append(ctx context.Context, e models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	// marshal metadata if present
	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID,
		e.OccurredAt.Format(occurredAtLayout),
		strings.ToUpper(strings.TrimSpace(e.Event)),
		nullStr(e.Camera),
		nullStr(e.ImageURL),
		e.Temperature,
		e.Humidity,
		metaPtr,
	)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, pruneEventsSQL, historyLimit)
	return err
}

// List returns events filtered by [from, to] (inclusive) and/or type, ordered ASC.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.Event, error) {
	var (
		conds []string
		args  []any
	)

	// Bind bounds in the same text format Append stores, so the comparison
	// is between identically serialized values.
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(occurredAtLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(occurredAtLayout))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := `SELECT id, occurred_at, type, camera, image_url, temperature, humidity, meta FROM events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Event, 0, 64)
	for rows.Next() {
		var ev models.Event
		var camera, imageURL, metaStr sql.NullString
		var temp, hum sql.NullFloat64
		if err := rows.Scan(&ev.ID, &ev.OccurredAt, &ev.Event, &camera, &imageURL, &temp, &hum, &metaStr); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		ev.Camera = camera.String
		ev.ImageURL = imageURL.String
		if temp.Valid {
			v := temp.Float64
			ev.Temperature = &v
		}
		if hum.Valid {
			v := hum.Float64
			ev.Humidity = &v
		}

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
