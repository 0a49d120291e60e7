package application

import (
	"context"
	"errors"

	"voice-assistant/internal/domain"
)

// SpeechToText turns a staged audio file into timed text segments.
type SpeechToText interface {
	Transcribe(ctx context.Context, path string) ([]domain.Segment, error)
	Name() string
}

// ErrSTTDisabled is returned by NoopSTT.
var ErrSTTDisabled = errors.New("speech-to-text not configured: set stt.engine to enable audio transcription")

// NoopSTT serves ask-only deployments where no speech engine is available.
type NoopSTT struct{}

func (NoopSTT) Transcribe(ctx context.Context, path string) ([]domain.Segment, error) {
	return nil, ErrSTTDisabled
}

func (NoopSTT) Name() string {
	return "none"
}
