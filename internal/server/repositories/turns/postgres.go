// Package turns provides the PostgreSQL-backed repository for conversation
// turns (the dialogs table).
package turns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/server/models"
)

// PostgresRepository implements turn storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, turn *models.Turn) error {
	query := `
		INSERT INTO dialogs (message_id, user_id, chat_id, message_text, is_bot_message, sent_at, delivered_at, full_answer)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), $7, $8)
		RETURNING sent_at
	`
	// A zero SentAt lets the database assign the timestamp; an explicit one
	// is used when two rows of one turn need a deterministic order.
	sentAt := sql.NullTime{Time: turn.SentAt, Valid: !turn.SentAt.IsZero()}

	err := r.db.QueryRowContext(ctx, query,
		turn.MessageID, turn.UserID, turn.ChatID, turn.Text, turn.IsBotMessage, sentAt, turn.DeliveredAt, turn.FullAnswer,
	).Scan(&turn.SentAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectRecent(ctx context.Context, userID, chatID int64, limit int) ([]*models.Turn, error) {
	query := `
		SELECT message_id, user_id, chat_id, message_text, is_bot_message, sent_at
		FROM dialogs
		WHERE user_id = $1 AND chat_id = $2
		ORDER BY sent_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select recent turns: %w", err)
	}
	defer rows.Close()

	var result []*models.Turn
	for rows.Next() {
		var item models.Turn
		if err := rows.Scan(
			&item.MessageID, &item.UserID, &item.ChatID, &item.Text, &item.IsBotMessage, &item.SentAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SelectHistory(ctx context.Context, userID int64, limit int) ([]*models.Turn, error) {
	query := `
		SELECT message_id, user_id, chat_id, message_text, is_bot_message, sent_at, delivered_at, read_at, full_answer
		FROM dialogs
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []*models.Turn
	for rows.Next() {
		var item models.Turn
		if err := rows.Scan(
			&item.MessageID, &item.UserID, &item.ChatID, &item.Text, &item.IsBotMessage,
			&item.SentAt, &item.DeliveredAt, &item.ReadAt, &item.FullAnswer,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetFullAnswer(ctx context.Context, messageID string, userID int64) (string, error) {
	query := `
		SELECT full_answer
		FROM dialogs
		WHERE message_id = $1 AND user_id = $2
	`
	var answer sql.NullString
	err := r.db.QueryRowContext(ctx, query, messageID, userID).Scan(&answer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	if !answer.Valid {
		return "", common.ErrNotFound
	}
	return answer.String, nil
}

func (r *PostgresRepository) StampRead(ctx context.Context, messageID string, userID int64) error {
	query := `
		UPDATE dialogs
		SET read_at = NOW()
		WHERE message_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, messageID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
