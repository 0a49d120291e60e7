package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra"
)

const DefaultGenerationTimeout = 30 * time.Second

type Option func(*Assistant)

// WithGenerationTimeout bounds each call to the text generator.
func WithGenerationTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithSampling(s domain.Sampling) Option {
	return func(a *Assistant) {
		a.sampling = s
	}
}

type Assistant struct {
	stt       SpeechToText
	generator TextGenerator
	uploads   UploadStore
	logger    *slog.Logger
	timeout   time.Duration
	sampling  domain.Sampling
}

func NewAssistant(
	stt SpeechToText,
	generator TextGenerator,
	uploads UploadStore,
	logger *slog.Logger,
	opts ...Option,
) *Assistant {
	a := &Assistant{
		stt:       stt,
		generator: generator,
		uploads:   uploads,
		logger:    logger,
		timeout:   DefaultGenerationTimeout,
		sampling:  domain.DefaultSampling(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Transcribe stages the upload, runs the speech engine on it and removes
// the staged file whatever the outcome.
func (a *Assistant) Transcribe(ctx context.Context, upload domain.UploadedAudio) (domain.Transcript, error) {
	path, release, err := a.uploads.Stage(upload.Filename, upload.Body)
	if err != nil {
		return domain.Transcript{}, &domain.UploadError{Op: "stage", Err: err}
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Warn("removing staged upload", "path", path, "error", err)
		}
	}()

	start := time.Now()
	segments, err := a.stt.Transcribe(ctx, path)
	if err != nil {
		return domain.Transcript{}, &domain.TranscriptionError{Filename: upload.Filename, Err: err}
	}

	transcript := domain.Transcript{Segments: segments}
	a.logger.Info("transcribed",
		"engine", a.stt.Name(),
		"file", upload.Filename,
		"segments", len(segments),
		"audio", transcript.Duration(),
		"elapsed", time.Since(start),
	)

	return transcript, nil
}

// GenerateResponse calls the generator once. It never returns an error:
// failures are folded into the Generation with a reason.
func (a *Assistant) GenerateResponse(ctx context.Context, prompt string) domain.Generation {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.Generate(ctx, prompt, a.sampling)
	if err == nil {
		text = strings.TrimSpace(text)
		if text != "" {
			a.logger.Debug("generated", "provider", a.generator.Name(), "chars", len(text), "elapsed", time.Since(start))
			return domain.Generation{Text: text}
		}
		err = domain.ErrEmptyResponse
	}

	gen := domain.Generation{Failure: classify(err), Err: err}

	if gen.Failure == domain.FailureEmpty {
		a.logger.Info("model returned no answer", "provider", a.generator.Name(), "reason", gen.Failure)
	} else {
		a.logger.Error("generation failed",
			"provider", a.generator.Name(),
			"reason", gen.Failure,
			"elapsed", time.Since(start),
			"error", err,
		)
	}

	return gen
}

// Ask wraps the question in the assistant prompt and returns the reply
// text, falling back to a fixed message when generation fails. The only
// error is the caller's own context ending.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	gen := a.GenerateResponse(ctx, domain.BuildPrompt(question))

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("asking: %w", err)
	}

	return gen.Reply(), nil
}

func classify(err error) domain.FailureReason {
	if err == nil {
		return domain.FailureNone
	}

	if errors.Is(err, domain.ErrEmptyResponse) {
		return domain.FailureEmpty
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return domain.FailureMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return domain.FailureCanceled
	}

	if apiErr, ok := infra.AsAPIError(err); ok {
		if apiErr.Transient() {
			return domain.FailureAPITransient
		}
		return domain.FailureAPIPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}

	return domain.FailureTransport
}
