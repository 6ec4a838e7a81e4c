package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dsavelev/dialogvault/internal/common"
)

// HTTPGenerator calls the in-house generation service's /generate endpoint.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGenerator builds an adapter for the generation service at baseURL.
func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	UserID  int64     `json:"user_id"`
	Message string    `json:"message"`
	Context []Message `json:"context"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, userID int64, text string, window []Message) (string, error) {
	body, err := json.Marshal(generateRequest{UserID: userID, Message: text, Context: window})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: generation service: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: generation service status %d: %s", common.ErrTransport, resp.StatusCode, msg)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: generation service response: %v", common.ErrTransport, err)
	}
	return out.Response, nil
}
