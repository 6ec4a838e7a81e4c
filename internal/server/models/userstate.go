package models

import (
	"database/sql"
	"time"
)

// UserState is the per-user row of the state ledger: one opaque state tag
// plus a structured JSON blob. One row per user; writes are whole-row
// upserts.
type UserState struct {
	UserID       int64
	CurrentState sql.NullString
	StateData    []byte // JSONB, nil when no data stored
	UpdatedAt    time.Time
}
