package authz

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

// HTTPAuthorizer calls the auth service's /check endpoint.
type HTTPAuthorizer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAuthorizer builds an adapter for the auth service at baseURL.
// timeout bounds each check call; zero means no client-side timeout.
func NewHTTPAuthorizer(baseURL string, timeout time.Duration) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type checkRequest struct {
	UserID int64 `json:"user_id"`
}

type checkResponse struct {
	Authorized bool `json:"authorized"`
}

// Check queries the oracle for userID. Transport failures are reported as
// common.ErrTransport; the caller decides how the turn degrades.
func (a *HTTPAuthorizer) Check(ctx context.Context, userID int64) (bool, error) {
	body, err := json.Marshal(checkRequest{UserID: userID})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/check", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: auth service: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("%w: auth service status %d: %s", common.ErrTransport, resp.StatusCode, msg)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: auth service response: %v", common.ErrTransport, err)
	}
	return out.Authorized, nil
}
