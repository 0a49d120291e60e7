package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"voice-assistant/config"
	"voice-assistant/internal/application"
	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/anthropic"
	"voice-assistant/internal/infra/audio"
	"voice-assistant/internal/infra/gemini"
	"voice-assistant/internal/infra/httpapi"
	"voice-assistant/internal/infra/logging"
	"voice-assistant/internal/infra/openai"
	"voice-assistant/internal/infra/whispercpp"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, environment only when empty)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded when present")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		slog.Error("setting up logger", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, *configPath, logger); err != nil {
		logger.Error("voice assistant error", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, configPath string, logger *logging.Logger) error {
	stt, err := createTranscriber(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("creating speech engine: %w", err)
	}

	generator := createGenerator(cfg, logger.Logger)
	if cfg.APIKey() == "" {
		logger.Warn("no API key for generation provider, /ask/ will answer with the fallback message",
			"provider", cfg.Generation.Provider,
		)
	}

	uploads := audio.NewTempStore(cfg.Upload.Dir, cfg.Upload.MaxBytes)

	assistant := application.NewAssistant(
		stt,
		generator,
		uploads,
		logger.Logger,
		application.WithGenerationTimeout(cfg.Generation.Timeout),
		application.WithSampling(samplingFrom(cfg.Generation.Sampling)),
	)

	server := httpapi.NewServer(httpapi.Config{
		Addr:            cfg.Server.Addr,
		MaxUploadBytes:  cfg.Upload.MaxBytes,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, assistant, logger.Logger)

	if configPath != "" {
		_, err := config.Watch(ctx, configPath, logger.Logger, func(next *config.Config) {
			if next.Log.Level == cfg.Log.Level {
				return
			}
			if err := logger.SetLevel(next.Log.Level); err != nil {
				logger.Warn("ignoring log level", "level", next.Log.Level, "error", err)
				return
			}
			logger.Info("log level changed", "from", cfg.Log.Level, "to", next.Log.Level)
			cfg.Log.Level = next.Log.Level
		})
		if err != nil {
			logger.Warn("config hot reload disabled", "error", err)
		}
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("starting voice assistant backend",
		"addr", server.Addr(),
		"stt_engine", stt.Name(),
		"provider", generator.Name(),
		"upload_dir", uploads.Dir(),
	)

	<-ctx.Done()

	var result *multierror.Error
	if err := server.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stopping server: %w", err))
	}
	if closer, ok := stt.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing speech engine: %w", err))
		}
	}
	if err := logger.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing log file: %w", err))
	}

	return result.ErrorOrNil()
}

func createTranscriber(ctx context.Context, cfg *config.Config, logger *slog.Logger) (application.SpeechToText, error) {
	switch cfg.STT.Engine {
	case config.EngineWhisperCLI:
		cli, err := whispercpp.NewCLI(whispercpp.CLIConfig{
			BinPath:       cfg.STT.CLI.Bin,
			ModelPath:     cfg.STT.CLI.Model,
			Language:      cfg.STT.Language,
			Threads:       cfg.STT.CLI.Threads,
			MaxConcurrent: cfg.STT.CLI.MaxConcurrent,
			Timeout:       cfg.STT.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return cli, nil

	case config.EngineOpenAI:
		return openai.NewWhisperClientWithURL(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.WhisperModel,
			cfg.STT.Language,
			cfg.OpenAI.BaseURL,
			cfg.STT.Timeout,
		), nil

	case config.EngineNone:
		logger.Warn("speech-to-text disabled, /transcribe/ will fail")
		return application.NoopSTT{}, nil

	default:
		client := whispercpp.NewServerClient(cfg.STT.Server.URL, cfg.STT.Language, cfg.STT.Timeout, *cfg.STT.Server.Serialize)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			logger.Warn("whisper server not reachable yet", "url", cfg.STT.Server.URL, "error", err)
		}
		return client, nil
	}
}

func createGenerator(cfg *config.Config, logger *slog.Logger) application.TextGenerator {
	timeout := cfg.Generation.Timeout

	switch cfg.Generation.Provider {
	case config.ProviderOpenAI:
		return openai.NewChatClientWithURL(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, cfg.OpenAI.BaseURL, timeout)
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithURL(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.BaseURL, timeout)
	case config.ProviderGemini:
		return gemini.NewClientWithURL(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, timeout)
	default:
		logger.Warn("unknown generation provider, using gemini", "provider", cfg.Generation.Provider)
		return gemini.NewClientWithURL(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, timeout)
	}
}

func samplingFrom(cfg config.SamplingConfig) domain.Sampling {
	s := domain.DefaultSampling()
	if cfg.Temperature != nil {
		s.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		s.TopP = *cfg.TopP
	}
	if cfg.TopK > 0 {
		s.TopK = cfg.TopK
	}
	if cfg.MaxOutputTokens > 0 {
		s.MaxOutputTokens = cfg.MaxOutputTokens
	}
	if len(cfg.StopSequences) > 0 {
		s.StopSequences = cfg.StopSequences
	}
	return s
}
