package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"voice-assistant/internal/infra/httpapi"
)

func TestServer_StartStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httpapi.NewServer(httpapi.Config{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, panicAssistant{}, logger)

	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("starting server: %v", err)
	}
	defer server.Stop()

	resp, err := http.Get("http://" + server.Addr() + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["message"] != httpapi.RootMessage {
		t.Errorf("message: got %q", body["message"])
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("stopping server: %v", err)
	}
	if err := server.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestServer_StartBindError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first := httpapi.NewServer(httpapi.Config{Addr: "127.0.0.1:0"}, panicAssistant{}, logger)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("starting first server: %v", err)
	}
	defer first.Stop()

	second := httpapi.NewServer(httpapi.Config{Addr: first.Addr()}, panicAssistant{}, logger)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected bind error for address already in use")
	}
}
