//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Recorder stub when portaudio is not available
type Recorder struct {
	logger *slog.Logger
}

func NewRecorder(sampleRate int, logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

func (r *Recorder) Available() bool {
	return false
}

func (r *Recorder) Record(_ context.Context, _ time.Duration) ([]int, error) {
	return nil, fmt.Errorf("microphone not available: rebuild with -tags portaudio")
}
