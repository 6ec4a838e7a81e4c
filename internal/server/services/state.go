package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/logging"
	"github.com/dsavelev/dialogvault/internal/server/repositories/repomanager"
)

// StateResult is the caller-facing view of a user's ledger row. A user with
// no stored state yields nil State and Data; absence is not an error.
type StateResult struct {
	State     *string
	Data      json.RawMessage
	UpdatedAt *time.Time
}

// StateService fronts the per-user state ledger. Every write is a whole-row
// upsert executed as a single statement, so concurrent writers for one user
// resolve last-write-wins without torn rows.
type StateService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
}

func NewStateService(db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger) *StateService {
	return &StateService{
		db:     db,
		repos:  repos,
		logger: logger.With("module", "state_service"),
	}
}

// UpdateState inserts or atomically overwrites the user's state row.
// data may be nil, clearing the stored blob.
func (s *StateService) UpdateState(ctx context.Context, userID int64, state string, data json.RawMessage) error {
	if err := s.repos.UserStates(s.db).Upsert(ctx, userID, state, data); err != nil {
		return fmt.Errorf("%w: update state: %v", common.ErrPersistence, err)
	}
	return nil
}

// FetchState returns the user's current state, or an empty StateResult when
// none has ever been stored.
func (s *StateService) FetchState(ctx context.Context, userID int64) (*StateResult, error) {
	row, err := s.repos.UserStates(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &StateResult{}, nil
		}
		return nil, fmt.Errorf("%w: fetch state: %v", common.ErrPersistence, err)
	}

	result := &StateResult{}
	if row.CurrentState.Valid {
		state := row.CurrentState.String
		result.State = &state
	}
	if len(row.StateData) > 0 {
		result.Data = json.RawMessage(row.StateData)
	}
	updatedAt := row.UpdatedAt
	result.UpdatedAt = &updatedAt
	return result, nil
}
