package userstates

import (
	"context"

	"github.com/dsavelev/dialogvault/internal/server/models"
)

type Repository interface {
	// Upsert inserts the user's state row or atomically overwrites
	// current_state, state_data and updated_at in a single statement.
	Upsert(ctx context.Context, userID int64, state string, data []byte) error

	// Get returns the state row for userID, or common.ErrNotFound when the
	// user has no stored state.
	Get(ctx context.Context, userID int64) (*models.UserState, error)
}
