// Package services holds the orchestration layer: the dialogue service
// (context assembly, generation, disclosure, encrypted persistence,
// re-validated retrieval) and the state ledger service.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/cryptox"
	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/logging"
	"github.com/dsavelev/dialogvault/internal/server/authz"
	"github.com/dsavelev/dialogvault/internal/server/disclosure"
	"github.com/dsavelev/dialogvault/internal/server/generation"
	"github.com/dsavelev/dialogvault/internal/server/models"
	"github.com/dsavelev/dialogvault/internal/server/repositories/repomanager"
)

// FallbackAnswer is persisted and returned when a collaborator call fails;
// the turn still completes and audit history stays whole.
const FallbackAnswer = "Sorry, something went wrong while processing your request."

// TurnResult is the outcome of one processed turn. Exactly one of FullAnswer
// and TruncatedAnswer is set; MessageID identifies the bot turn under which
// the full answer was persisted, so it can be requested later regardless of
// the current disclosure.
type TurnResult struct {
	MessageID       string
	FullAnswer      *string
	TruncatedAnswer *string
}

// HistoryItem is one decrypted turn of a user's history. FullAnswer is
// present only on bot turns and only when the caller is currently authorized.
type HistoryItem struct {
	MessageID    string
	IsBotMessage bool
	SentAt       time.Time
	ReadAt       *time.Time
	Text         *string
	FullAnswer   *string
}

// DialogueService orchestrates conversational turns: it assembles the
// context window, invokes the generation backend, applies the disclosure
// policy against a live authorization check, and persists every turn
// encrypted at rest.
type DialogueService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	cipher        *cryptox.Cipher
	generator     generation.Generator
	authorizer    authz.Authorizer
	assembler     *Assembler
	truncateLimit int
	logger        logging.Logger
}

// NewDialogueService wires the dialogue service. truncateLimit values < 1
// fall back to the policy default.
func NewDialogueService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	cipher *cryptox.Cipher,
	generator generation.Generator,
	authorizer authz.Authorizer,
	windowSize int,
	truncateLimit int,
	logger logging.Logger,
) *DialogueService {
	if truncateLimit < 1 {
		truncateLimit = disclosure.DefaultTruncateLimit
	}
	return &DialogueService{
		db:            db,
		repos:         repos,
		cipher:        cipher,
		generator:     generator,
		authorizer:    authorizer,
		assembler:     NewAssembler(db, repos, cipher, windowSize, logger),
		truncateLimit: truncateLimit,
		logger:        logger.With("module", "dialogue_service"),
	}
}

// ProcessTurn handles one inbound user message end to end. A failed
// generation or authorization call degrades the answer to FallbackAnswer
// (treated as undisclosed), the turn is still persisted, and the collaborator
// error is returned alongside the result so the caller can account for it.
// A persistence failure is fatal: nothing is recorded and no result returned.
func (s *DialogueService) ProcessTurn(ctx context.Context, userID, chatID int64, text string) (*TurnResult, error) {
	window, err := s.assembler.Window(ctx, userID, chatID, text)
	if err != nil {
		return nil, err
	}

	var collabErr error

	answer, err := s.generator.Generate(ctx, userID, text, window)
	if err != nil {
		s.logger.Error(ctx, "generation failed, using fallback answer", "user_id", userID, "error", err)
		answer = FallbackAnswer
		collabErr = err
	}

	authorized := false
	if collabErr == nil {
		authorized, err = s.authorizer.Check(ctx, userID)
		if err != nil {
			s.logger.Error(ctx, "authorization check failed, withholding full answer", "user_id", userID, "error", err)
			answer = FallbackAnswer
			authorized = false
			collabErr = err
		}
	}

	decision := disclosure.Decide(authorized, answer, s.truncateLimit)

	encryptedText, err := s.cipher.Encrypt(text)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt message text: %v", common.ErrInternal, err)
	}
	encryptedReleased, err := s.cipher.Encrypt(decision.Released())
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt released answer: %v", common.ErrInternal, err)
	}
	encryptedAnswer, err := s.cipher.Encrypt(answer)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt full answer: %v", common.ErrInternal, err)
	}

	now := time.Now().UTC()
	userTurn := &models.Turn{
		MessageID: uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Text:      sql.NullString{String: encryptedText, Valid: true},
		SentAt:    now,
	}
	// The bot row is ordered strictly after the user row so the context
	// window replays the conversation in the order it happened.
	botTurn := &models.Turn{
		MessageID:    uuid.NewString(),
		UserID:       userID,
		ChatID:       chatID,
		Text:         sql.NullString{String: encryptedReleased, Valid: true},
		IsBotMessage: true,
		SentAt:       now.Add(time.Microsecond),
		DeliveredAt:  sql.NullTime{Time: now, Valid: true},
		FullAnswer:   sql.NullString{String: encryptedAnswer, Valid: true},
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Turns(tx)
		if err := repo.Create(ctx, userTurn); err != nil {
			return err
		}
		return repo.Create(ctx, botTurn)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: persist turn: %v", common.ErrPersistence, err)
	}

	return &TurnResult{
		MessageID:       botTurn.MessageID,
		FullAnswer:      decision.FullAnswer,
		TruncatedAnswer: decision.TruncatedAnswer,
	}, collabErr
}

// LogMessage persists a single turn without invoking generation. Empty text
// is stored as NULL, mirroring transports that log bare events.
func (s *DialogueService) LogMessage(ctx context.Context, userID, chatID int64, text string, isBotMessage bool) (string, error) {
	turn := &models.Turn{
		MessageID:    uuid.NewString(),
		UserID:       userID,
		ChatID:       chatID,
		IsBotMessage: isBotMessage,
	}
	if text != "" {
		encrypted, err := s.cipher.Encrypt(text)
		if err != nil {
			return "", fmt.Errorf("%w: encrypt message text: %v", common.ErrInternal, err)
		}
		turn.Text = sql.NullString{String: encrypted, Valid: true}
	}

	if err := s.repos.Turns(s.db).Create(ctx, turn); err != nil {
		return "", fmt.Errorf("%w: log message: %v", common.ErrPersistence, err)
	}
	return turn.MessageID, nil
}

// FetchFullAnswer releases previously withheld content. The authorization
// oracle is consulted first on every call: a denial returns ErrNotAuthorized
// with zero storage access. The row lookup is scoped by both message ID and
// owning user, so a foreign message yields ErrNotFound, never content. On a
// successful decrypt, read_at is re-stamped; repeat reads are allowed.
func (s *DialogueService) FetchFullAnswer(ctx context.Context, userID int64, messageID string) (string, error) {
	authorized, err := s.authorizer.Check(ctx, userID)
	if err != nil {
		return "", err
	}
	if !authorized {
		return "", common.ErrNotAuthorized
	}

	encrypted, err := s.repos.Turns(s.db).GetFullAnswer(ctx, messageID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("%w: fetch full answer: %v", common.ErrPersistence, err)
	}

	answer, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		// Record left intact; no read stamp since no content was released.
		s.logger.Error(ctx, "failed to decrypt full answer", "message_id", messageID, "error", err)
		return common.RedactedPlaceholder, nil
	}

	if err := s.repos.Turns(s.db).StampRead(ctx, messageID, userID); err != nil {
		s.logger.Warn(ctx, "failed to stamp read_at", "message_id", messageID, "error", err)
	}

	return answer, nil
}

// FetchHistory returns the user's most recent turns, newest first, with each
// text field decrypted independently. Bot full answers are included only
// when the caller is authorized right now; an oracle failure withholds them
// rather than failing the request.
func (s *DialogueService) FetchHistory(ctx context.Context, userID int64, limit int) ([]HistoryItem, error) {
	authorized, err := s.authorizer.Check(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "authorization check failed, withholding full answers", "user_id", userID, "error", err)
		authorized = false
	}

	rows, err := s.repos.Turns(s.db).SelectHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch history: %v", common.ErrPersistence, err)
	}

	history := make([]HistoryItem, 0, len(rows))
	for _, turn := range rows {
		item := HistoryItem{
			MessageID:    turn.MessageID,
			IsBotMessage: turn.IsBotMessage,
			SentAt:       turn.SentAt,
		}
		if turn.ReadAt.Valid {
			readAt := turn.ReadAt.Time
			item.ReadAt = &readAt
		}
		if turn.Text.Valid {
			text := s.decryptOrRedact(ctx, turn.MessageID, "message_text", turn.Text.String)
			item.Text = &text
		}
		if authorized && turn.IsBotMessage && turn.FullAnswer.Valid {
			answer := s.decryptOrRedact(ctx, turn.MessageID, "full_answer", turn.FullAnswer.String)
			item.FullAnswer = &answer
		}
		history = append(history, item)
	}
	return history, nil
}

func (s *DialogueService) decryptOrRedact(ctx context.Context, messageID, field, encrypted string) string {
	plain, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		s.logger.Error(ctx, "failed to decrypt field", "message_id", messageID, "field", field, "error", err)
		return common.RedactedPlaceholder
	}
	return plain
}
