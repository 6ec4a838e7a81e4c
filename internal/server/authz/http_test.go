package authz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dsavelev/dialogvault/internal/common"
)

func TestHTTPAuthorizer_Check(t *testing.T) {
	var gotUserID int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/check" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			UserID int64 `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotUserID = req.UserID
		_ = json.NewEncoder(w).Encode(map[string]bool{"authorized": req.UserID == 42})
	}))
	defer srv.Close()

	a := NewHTTPAuthorizer(srv.URL, time.Second)

	ok, err := a.Check(context.Background(), 42)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if !ok {
		t.Fatalf("expected authorized for user 42")
	}
	if gotUserID != 42 {
		t.Fatalf("server saw user_id %d", gotUserID)
	}

	ok, err = a.Check(context.Background(), 7)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if ok {
		t.Fatalf("expected unauthorized for user 7")
	}
}

func TestHTTPAuthorizer_NonOKStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAuthorizer(srv.URL, time.Second)
	_, err := a.Check(context.Background(), 1)
	if !errors.Is(err, common.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}

func TestHTTPAuthorizer_UnreachableIsTransportError(t *testing.T) {
	a := NewHTTPAuthorizer("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := a.Check(context.Background(), 1)
	if !errors.Is(err, common.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}
