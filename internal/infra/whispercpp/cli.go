package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/audio"
)

const whisperSampleRate = 16000

type CLIConfig struct {
	BinPath       string
	ModelPath     string
	Language      string
	Threads       int
	MaxConcurrent int
	Timeout       time.Duration
}

// CLI transcribes files by running the whisper-cli binary. Each run loads
// the model, so concurrent runs are capped to bound memory use.
type CLI struct {
	executor  *Executor
	modelPath string
	language  string
	threads   int
	sem       chan struct{}
}

func NewCLI(cfg CLIConfig) (*CLI, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("whisper model %q: %w", cfg.ModelPath, err)
	}

	executor, err := NewExecutor(cfg.BinPath, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("whisper-cli: %w", err)
	}

	return NewCLIWithExecutor(cfg, executor), nil
}

func NewCLIWithExecutor(cfg CLIConfig, executor *Executor) *CLI {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Language == "" {
		cfg.Language = "auto"
	}
	return &CLI{
		executor:  executor,
		modelPath: cfg.ModelPath,
		language:  cfg.Language,
		threads:   cfg.Threads,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
	}
}

func (c *CLI) Name() string {
	return "whisper-cli"
}

func (c *CLI) Transcribe(ctx context.Context, path string) ([]domain.Segment, error) {
	format, err := audio.InspectWAV(path)
	switch {
	case err == nil:
		if format.SampleRate != whisperSampleRate {
			return nil, fmt.Errorf("unsupported sample rate %d Hz: whisper-cli needs %d Hz WAV", format.SampleRate, whisperSampleRate)
		}
	case errors.Is(err, audio.ErrNotWAV):
		// whisper-cli builds with ffmpeg support decode other containers themselves
	default:
		return nil, err
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	args := []string{
		"-m", c.modelPath,
		"-f", path,
		"-l", c.language,
		"-np",
	}
	if c.threads > 0 {
		args = append(args, "-t", strconv.Itoa(c.threads))
	}

	stdout, stderr, err := c.executor.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("running whisper-cli: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	return ParseCLIOutput(stdout)
}
