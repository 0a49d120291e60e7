package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

// WhisperClient transcribes audio files with the hosted Whisper model.
type WhisperClient struct {
	api      *goopenai.Client
	model    string
	language string
}

func NewWhisperClient(apiKey, model, language string, timeout time.Duration) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, model, language, "", timeout)
}

func NewWhisperClientWithURL(apiKey, model, language, baseURL string, timeout time.Duration) *WhisperClient {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &WhisperClient{
		api:      goopenai.NewClientWithConfig(newConfig(apiKey, baseURL, timeout)),
		model:    model,
		language: language,
	}
}

func (c *WhisperClient) Name() string {
	return "openai"
}

func (c *WhisperClient) Transcribe(ctx context.Context, path string) ([]domain.Segment, error) {
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    c.model,
		FilePath: path,
		Language: c.language,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transcription: %w", apiError("whisper", err))
	}

	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return nil, nil
		}
		return []domain.Segment{{
			Text: text,
			End:  seconds(resp.Duration),
		}}, nil
	}

	segments := make([]domain.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, domain.Segment{
			Text:  s.Text,
			Start: seconds(s.Start),
			End:   seconds(s.End),
		})
	}
	return segments, nil
}

func newConfig(apiKey, baseURL string, timeout time.Duration) goopenai.ClientConfig {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return cfg
}

// apiError converts go-openai status errors into infra.APIError so callers
// can classify them without importing the SDK.
func apiError(service string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &infra.APIError{Service: service, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &infra.APIError{Service: service, StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return err
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
