package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
	"voice-assistant/internal/infra/anthropic"
)

func TestClaudeClient_Generate(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-api-key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&captured)

		response := map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "Paris is the capital of France."},
			},
			"stop_reason": "end_turn",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "claude-test", server.URL, 5*time.Second)

	text, err := client.Generate(context.Background(), domain.BuildPrompt("capital of France?"), domain.DefaultSampling())
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if text != "Paris is the capital of France." {
		t.Errorf("text: got %q", text)
	}

	if captured["model"] != "claude-test" {
		t.Errorf("model: got %v", captured["model"])
	}
	if captured["max_tokens"] != float64(2048) {
		t.Errorf("max_tokens: got %v", captured["max_tokens"])
	}
	if captured["top_k"] != float64(40) {
		t.Errorf("top_k: got %v", captured["top_k"])
	}
	if stops, _ := captured["stop_sequences"].([]any); len(stops) != 2 {
		t.Errorf("stop_sequences: got %v", captured["stop_sequences"])
	}
}

func TestClaudeClient_GenerateEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[],"stop_reason":"stop_sequence"}`))
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "claude-test", server.URL, 5*time.Second)

	_, err := client.Generate(context.Background(), "prompt", domain.DefaultSampling())
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Errorf("error: got %v, want ErrEmptyResponse", err)
	}
}

func TestClaudeClient_GenerateUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("bad-key", "claude-test", server.URL, 5*time.Second)

	_, err := client.Generate(context.Background(), "prompt", domain.DefaultSampling())
	apiErr, ok := infra.AsAPIError(err)
	if !ok {
		t.Fatalf("error: got %v, want APIError", err)
	}
	if apiErr.Transient() {
		t.Error("401 should not be transient")
	}
}
