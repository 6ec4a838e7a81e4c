package services

import (
	"context"
	"fmt"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/cryptox"
	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/logging"
	"github.com/dsavelev/dialogvault/internal/server/generation"
	"github.com/dsavelev/dialogvault/internal/server/repositories/repomanager"
)

// DefaultWindowSize is the number of prior turns fed to generation.
const DefaultWindowSize = 10

// Assembler builds the ordered context window for one generation call: the
// most recent windowSize prior turns of a (user, chat) pair in chronological
// order, with the new message appended as the final user entry. A pure read;
// fewer prior turns simply produce a shorter window.
type Assembler struct {
	db         dbx.DBTX
	repos      repomanager.RepositoryManager
	cipher     *cryptox.Cipher
	windowSize int
	logger     logging.Logger
}

// NewAssembler constructs an Assembler. windowSize values < 1 fall back to
// DefaultWindowSize.
func NewAssembler(db dbx.DBTX, repos repomanager.RepositoryManager, cipher *cryptox.Cipher, windowSize int, logger logging.Logger) *Assembler {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &Assembler{
		db:         db,
		repos:      repos,
		cipher:     cipher,
		windowSize: windowSize,
		logger:     logger.With("module", "context_assembler"),
	}
}

// Window returns at most windowSize+1 role/content pairs, oldest first, the
// final one being {user, newText}. Turns whose text fails decryption are
// included with a redacted placeholder so the window length stays honest.
func (a *Assembler) Window(ctx context.Context, userID, chatID int64, newText string) ([]generation.Message, error) {
	recent, err := a.repos.Turns(a.db).SelectRecent(ctx, userID, chatID, a.windowSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	window := make([]generation.Message, 0, len(recent)+1)

	// SelectRecent returns newest first; walk backwards for chronological order.
	for i := len(recent) - 1; i >= 0; i-- {
		turn := recent[i]
		if !turn.Text.Valid {
			continue
		}
		content, err := a.cipher.Decrypt(turn.Text.String)
		if err != nil {
			a.logger.Error(ctx, "failed to decrypt turn text", "message_id", turn.MessageID, "error", err)
			content = common.RedactedPlaceholder
		}
		role := generation.RoleUser
		if turn.IsBotMessage {
			role = generation.RoleAssistant
		}
		window = append(window, generation.Message{Role: role, Content: content})
	}

	return append(window, generation.Message{Role: generation.RoleUser, Content: newText}), nil
}
