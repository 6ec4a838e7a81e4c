// Package userstates provides the PostgreSQL-backed state ledger: one row
// per user, written only through whole-row upserts so concurrent writers can
// never produce an interleaved mix of fields.
package userstates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/server/models"
)

// PostgresRepository implements the ledger over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, state string, data []byte) error {
	query := `
		INSERT INTO user_states (user_id, current_state, state_data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			current_state = EXCLUDED.current_state,
			state_data = EXCLUDED.state_data,
			updated_at = NOW()
	`
	// data may be nil; it maps to NULL in the jsonb column.
	var blob any
	if data != nil {
		blob = data
	}
	if _, err := r.db.ExecContext(ctx, query, userID, state, blob); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.UserState, error) {
	query := `
		SELECT user_id, current_state, state_data, updated_at
		FROM user_states
		WHERE user_id = $1
	`
	item := &models.UserState{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&item.UserID, &item.CurrentState, &item.StateData, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}
