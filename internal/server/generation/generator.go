// Package generation adapts the text-generation backend. The core treats it
// as an external collaborator behind a narrow interface; two adapters are
// provided, one for an OpenAI-compatible API and one for the in-house HTTP
// generation service.
package generation

import "context"

// Message roles in a context window.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/content pair of the context window fed to generation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces an answer for the user's message given the ordered
// context window (the new message is already the final window entry).
type Generator interface {
	Generate(ctx context.Context, userID int64, text string, window []Message) (string, error)
}
