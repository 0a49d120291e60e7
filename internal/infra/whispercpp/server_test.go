package whispercpp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

func writeUpload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload_test_voice.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o600))
	return path
}

func TestServerClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inference", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "fake audio", string(data))
		assert.Equal(t, "upload_test_voice.m4a", header.Filename)

		json.NewEncoder(w).Encode(verboseResponse{
			Text: " What time is it? In Tokyo.",
			Segments: []verboseSegment{
				{ID: 0, Text: " What time is it?", Start: 0, End: 1.5},
				{ID: 1, Text: " In Tokyo.", Start: 1.5, End: 2.25},
			},
		})
	}))
	defer server.Close()

	client := NewServerClient(server.URL, "en", 5*time.Second, true)

	segments, err := client.Transcribe(context.Background(), writeUpload(t))
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 1500*time.Millisecond, segments[0].End)
	assert.Equal(t, "What time is it? In Tokyo.", domain.Transcript{Segments: segments}.Text())
}

func TestServerClient_TextOnlyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": " hello there "}`))
	}))
	defer server.Close()

	segments, err := NewServerClient(server.URL, "", time.Second, false).Transcribe(context.Background(), writeUpload(t))
	require.NoError(t, err)
	assert.Equal(t, []domain.Segment{{Text: "hello there"}}, segments)
}

func TestServerClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantAPI: true},
		{name: "error body", status: http.StatusOK, body: `{"error":"failed to read audio data"}`},
		{name: "not json", status: http.StatusOK, body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewServerClient(server.URL, "", time.Second, true).Transcribe(context.Background(), writeUpload(t))
			require.Error(t, err)

			_, isAPI := infra.AsAPIError(err)
			assert.Equal(t, tt.wantAPI, isAPI)
		})
	}
}

func TestServerClient_MissingFile(t *testing.T) {
	client := NewServerClient("http://127.0.0.1:1", "", time.Second, true)

	_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestServerClient_Serializes(t *testing.T) {
	var running, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := running.Add(1)
		defer running.Add(-1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(20 * time.Millisecond)
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	client := NewServerClient(server.URL, "", 5*time.Second, true)
	path := writeUpload(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Transcribe(context.Background(), path)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
}

func TestServerClient_CanceledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()
	defer close(release)

	client := NewServerClient(server.URL, "", 5*time.Second, true)
	path := writeUpload(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Transcribe(context.Background(), path)
	}()

	require.Eventually(t, func() bool { return len(client.slot) == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Transcribe(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	release <- struct{}{}
	<-done
}

func TestServerClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("whisper.cpp server"))
	}))
	defer server.Close()

	assert.NoError(t, NewServerClient(server.URL+"/", "", time.Second, true).Ping(context.Background()))
}

func TestParseCLIOutput(t *testing.T) {
	out := []byte("system_info: n_threads = 4\n" +
		"[00:01:02.500 --> 01:00:00.000]   long one\n" +
		"\n" +
		"[00:00:00.000 --> 00:00:00.000]\n")

	segments, err := ParseCLIOutput(out)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, time.Minute+2500*time.Millisecond, segments[0].Start)
	assert.Equal(t, time.Hour, segments[0].End)
	assert.Equal(t, "long one", segments[0].Text)
	assert.Equal(t, "", segments[1].Text)
}
