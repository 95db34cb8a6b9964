package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dwizi/larkbot/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "deepseek-chat",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestCompleteSendsMessagesAndParams(t *testing.T) {
	var receivedPath string
	var receivedAuth string
	var body struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		receivedPath = req.URL.Path
		receivedAuth = req.Header.Get("Authorization")
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completionBody("<think>plan</think>hello there"))
	}))
	defer server.Close()

	client := New(Config{APIKey: "secret", BaseURL: server.URL + "/v1", Model: "deepseek-chat"}, testLogger())
	reply, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "you are a bot"},
			{Role: llm.RoleUser, Content: "hi"},
		},
		MaxTokens:   1000,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if reply != "hello there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if receivedPath != "/v1/chat/completions" {
		t.Fatalf("unexpected path: %s", receivedPath)
	}
	if receivedAuth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", receivedAuth)
	}
	if body.Model != "deepseek-chat" || body.MaxTokens != 1000 || body.Temperature != 0.7 {
		t.Fatalf("unexpected params: %+v", body)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hi" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestCompleteDoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	client := New(Config{APIKey: "secret", BaseURL: server.URL}, testLogger())
	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestCompleteRequiresAPIKeyForRemote(t *testing.T) {
	client := New(Config{BaseURL: "https://api.deepseek.com/v1"}, testLogger())
	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSanitizeModelReply(t *testing.T) {
	input := "```think\nsteps\n```\n{\"action\":\"read_document\"}"
	if got := sanitizeModelReply(input); got != `{"action":"read_document"}` {
		t.Fatalf("unexpected sanitized reply: %q", got)
	}
}
