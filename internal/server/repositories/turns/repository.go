package turns

import (
	"context"

	"github.com/dsavelev/dialogvault/internal/server/models"
)

type Repository interface {
	// Create inserts one turn row. SentAt is populated from the database.
	Create(ctx context.Context, turn *models.Turn) error

	// SelectRecent returns up to limit turns for (userID, chatID), newest
	// first by sent_at.
	SelectRecent(ctx context.Context, userID, chatID int64, limit int) ([]*models.Turn, error)

	// SelectHistory returns up to limit turns for userID across all chats,
	// newest first by sent_at.
	SelectHistory(ctx context.Context, userID int64, limit int) ([]*models.Turn, error)

	// GetFullAnswer fetches the stored full-answer ciphertext scoped by both
	// message ID and owning user. A row owned by another user, a missing
	// row, or a row without a full answer all yield common.ErrNotFound.
	GetFullAnswer(ctx context.Context, messageID string, userID int64) (string, error)

	// StampRead sets read_at = NOW() on the owned row. Re-stamping an
	// already-read row is allowed.
	StampRead(ctx context.Context, messageID string, userID int64) error
}
