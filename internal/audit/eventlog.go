package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types appended by the engine.
const (
	TypeAttemptStarted   = "attempt_started"
	TypeAttemptFinalized = "attempt_finalized"
)

// Logger is an append-only audit sink. Append failures are reported but
// the engine treats the log as best-effort.
type Logger interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// EventRepo appends audit events to the event_log table.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix())
	return err
}

// Nop discards all events. Useful for tests and memory-backed setups.
type Nop struct{}

func (Nop) Append(context.Context, string, string, any) error { return nil }
