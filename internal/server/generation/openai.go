package generation

import (
	"context"
	"fmt"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator backs Generate with an OpenAI-compatible chat completion
// API. A custom base URL allows pointing it at local gateways.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator for the given API key and model.
// baseURL is optional; when empty the public endpoint is used.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, userID int64, text string, window []Message) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(window))
	for _, m := range window {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
		User:     fmt.Sprintf("%d", userID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", common.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", common.ErrTransport)
	}
	return resp.Choices[0].Message.Content, nil
}
