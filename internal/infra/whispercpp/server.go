package whispercpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

const DefaultServerURL = "http://127.0.0.1:8082"

// ServerClient talks to a whisper.cpp server process, which keeps one model
// loaded for its whole lifetime. The server decodes with a single context,
// so requests are serialized unless serialize is false.
type ServerClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
	// slot is nil when requests are not serialized
	slot chan struct{}
}

func NewServerClient(baseURL, language string, timeout time.Duration, serialize bool) *ServerClient {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	c := &ServerClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}
	if serialize {
		c.slot = make(chan struct{}, 1)
	}
	return c
}

func (c *ServerClient) Name() string {
	return "whisper-server"
}

func (c *ServerClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ping checks that the server answers on its root path.
func (c *ServerClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &infra.APIError{Service: "whisper.cpp", StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *ServerClient) Transcribe(ctx context.Context, path string) ([]domain.Segment, error) {
	body, contentType, err := c.buildForm(path)
	if err != nil {
		return nil, err
	}

	if c.slot != nil {
		select {
		case c.slot <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-c.slot }()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &infra.APIError{Service: "whisper.cpp", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result verboseResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != "" {
		return nil, fmt.Errorf("whisper.cpp: %s", result.Error)
	}

	return result.segments(), nil
}

func (c *ServerClient) buildForm(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err = io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}

	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0.0",
	}
	if c.language != "" {
		fields["language"] = c.language
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("writing %s field: %w", key, err)
		}
	}

	if err = writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
