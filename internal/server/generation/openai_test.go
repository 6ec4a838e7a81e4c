package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dsavelev/dialogvault/internal/common"
)

// chatCompletionStub answers the OpenAI chat completions wire format.
func chatCompletionStub(t *testing.T, content string, gotReq *map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if gotReq != nil {
			if err := json.NewDecoder(r.Body).Decode(gotReq); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		resp := map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(chatCompletionStub(t, "generated answer", &gotReq))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL, "test-model")

	window := []Message{
		{Role: RoleUser, Content: "earlier question"},
		{Role: RoleAssistant, Content: "earlier answer"},
		{Role: RoleUser, Content: "new question"},
	}
	answer, err := g.Generate(context.Background(), 42, "new question", window)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if answer != "generated answer" {
		t.Fatalf("answer = %q", answer)
	}

	messages, ok := gotReq["messages"].([]any)
	if !ok || len(messages) != 3 {
		t.Fatalf("request messages = %v", gotReq["messages"])
	}
	second := messages[1].(map[string]any)
	if second["role"] != "assistant" || second["content"] != "earlier answer" {
		t.Fatalf("messages[1] = %v", second)
	}
	if gotReq["user"] != "42" {
		t.Fatalf("user = %v", gotReq["user"])
	}
}

func TestOpenAIGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL, "test-model")

	_, err := g.Generate(context.Background(), 1, "q", []Message{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, common.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}

func TestOpenAIGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOpenAIGenerator("test-key", srv.URL, "test-model")

	_, err := g.Generate(context.Background(), 1, "q", []Message{{Role: RoleUser, Content: "q"}})
	if !errors.Is(err, common.ErrTransport) {
		t.Fatalf("want ErrTransport, got %v", err)
	}
}
