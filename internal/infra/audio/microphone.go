//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Recorder captures mono 16-bit audio from the default input device.
type Recorder struct {
	sampleRate int
	logger     *slog.Logger
}

func NewRecorder(sampleRate int, logger *slog.Logger) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		logger:     logger,
	}
}

func (r *Recorder) Available() bool {
	return true
}

// Record captures audio until ctx is done, maxDuration elapses, or one
// second of silence follows speech.
func (r *Recorder) Record(ctx context.Context, maxDuration time.Duration) ([]int, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	buffer := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), len(buffer), buffer)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Stop()

	r.logger.Info("recording", "sample_rate", r.sampleRate, "max_duration", maxDuration)

	maxSamples := int(maxDuration.Seconds() * float64(r.sampleRate))
	samples := make([]int, 0, maxSamples)

	const silenceThreshold = 500
	silence := 0
	heardSpeech := false

	for len(samples) < maxSamples {
		select {
		case <-ctx.Done():
			return samples, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("reading from stream: %w", err)
		}

		quiet := true
		for _, s := range buffer {
			samples = append(samples, int(s))
			if s > silenceThreshold || s < -silenceThreshold {
				quiet = false
			}
		}

		if quiet {
			silence += len(buffer)
		} else {
			silence = 0
			heardSpeech = true
		}

		if heardSpeech && silence > r.sampleRate {
			break
		}
	}

	r.logger.Info("recording finished", "samples", len(samples))
	return samples, nil
}
