package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/client"
)

func TestConverse(t *testing.T) {
	var asked string

	mux := http.NewServeMux()
	mux.HandleFunc("POST /transcribe/", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "question.wav", header.Filename)
		json.NewEncoder(w).Encode(map[string]string{"transcription": string(data)})
	})
	mux.HandleFunc("POST /ask/", func(w http.ResponseWriter, r *http.Request) {
		asked = r.URL.Query().Get("question")
		json.NewEncoder(w).Encode(map[string]string{"response": "It is sunny."})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	path := filepath.Join(t.TempDir(), "question.wav")
	require.NoError(t, os.WriteFile(path, []byte("how is the weather"), 0o600))

	err := converse(context.Background(), client.New(server.URL, 5*time.Second), path)
	require.NoError(t, err)
	assert.Equal(t, "how is the weather", asked)
}

func TestConverse_MissingFile(t *testing.T) {
	err := converse(context.Background(), client.New("http://127.0.0.1:1", time.Second), filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("VOICECLIENT_ENV_FILE_TEST=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VOICECLIENT_ENV_FILE_TEST") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("VOICECLIENT_ENV_FILE_TEST"))

	// a directory exists but cannot be parsed
	assert.Error(t, loadEnvFile(dir))
}
