package application

import (
	"context"

	"voice-assistant/internal/domain"
)

// TextGenerator sends one prompt to a language model and returns its text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, sampling domain.Sampling) (string, error)
	Name() string
}
