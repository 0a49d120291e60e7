package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	EngineWhisperServer = "whisper-server"
	EngineWhisperCLI    = "whisper-cli"
	EngineOpenAI        = "openai"
	EngineNone          = "none"

	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upload     UploadConfig     `yaml:"upload"`
	STT        STTConfig        `yaml:"stt"`
	Generation GenerationConfig `yaml:"generation"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type STTConfig struct {
	Engine   string              `yaml:"engine"`
	Language string              `yaml:"language"`
	Timeout  time.Duration       `yaml:"timeout"`
	Server   WhisperServerConfig `yaml:"server"`
	CLI      WhisperCLIConfig    `yaml:"cli"`
}

type WhisperServerConfig struct {
	URL       string `yaml:"url"`
	Serialize *bool  `yaml:"serialize"`
}

type WhisperCLIConfig struct {
	Bin           string `yaml:"bin"`
	Model         string `yaml:"model"`
	Threads       int    `yaml:"threads"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

type GenerationConfig struct {
	Provider string         `yaml:"provider"`
	Timeout  time.Duration  `yaml:"timeout"`
	Sampling SamplingConfig `yaml:"sampling"`
}

// SamplingConfig overrides the default sampling parameters. Nil or zero
// fields keep the defaults.
type SamplingConfig struct {
	Temperature     *float64 `yaml:"temperature"`
	TopP            *float64 `yaml:"top_p"`
	TopK            int      `yaml:"top_k"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	StopSequences   []string `yaml:"stop_sequences"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type OpenAIConfig struct {
	APIKey       string `yaml:"api_key"`
	ChatModel    string `yaml:"chat_model"`
	WhisperModel string `yaml:"whisper_model"`
	BaseURL      string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML file at path, expands ${VAR} references, overlays
// environment variables and fills defaults. An empty path loads from the
// environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// environment lists the variables that override file settings.
type environment struct {
	Addr           string `env:"VA_ADDR"`
	UploadDir      string `env:"VA_UPLOAD_DIR"`
	UploadMaxBytes int64  `env:"VA_UPLOAD_MAX_BYTES"`
	STTEngine      string `env:"VA_STT_ENGINE"`
	STTLanguage    string `env:"VA_STT_LANGUAGE"`
	WhisperURL     string `env:"VA_WHISPER_URL"`
	WhisperModel   string `env:"VA_WHISPER_MODEL"`
	Provider       string `env:"VA_GENERATION_PROVIDER"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL"`
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	AnthropicKey   string `env:"ANTHROPIC_API_KEY"`
	LogLevel       string `env:"VA_LOG_LEVEL"`
	LogFormat      string `env:"VA_LOG_FORMAT"`
	LogFile        string `env:"VA_LOG_FILE"`
}

func (c *Config) applyEnv() error {
	var e environment
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	override(&c.Server.Addr, e.Addr)
	override(&c.Upload.Dir, e.UploadDir)
	if e.UploadMaxBytes != 0 {
		c.Upload.MaxBytes = e.UploadMaxBytes
	}
	override(&c.STT.Engine, e.STTEngine)
	override(&c.STT.Language, e.STTLanguage)
	override(&c.STT.Server.URL, e.WhisperURL)
	override(&c.STT.CLI.Model, e.WhisperModel)
	override(&c.Generation.Provider, e.Provider)
	override(&c.Gemini.APIKey, e.GeminiAPIKey)
	override(&c.Gemini.Model, e.GeminiModel)
	override(&c.OpenAI.APIKey, e.OpenAIAPIKey)
	override(&c.Anthropic.APIKey, e.AnthropicKey)
	override(&c.Log.Level, e.LogLevel)
	override(&c.Log.Format, e.LogFormat)
	override(&c.Log.File, e.LogFile)

	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = time.Minute
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 2 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 25 << 20
	}
	if c.STT.Engine == "" {
		c.STT.Engine = EngineWhisperServer
	}
	if c.STT.Timeout == 0 {
		c.STT.Timeout = 5 * time.Minute
	}
	if c.STT.Server.URL == "" {
		c.STT.Server.URL = "http://127.0.0.1:8082"
	}
	if c.STT.Server.Serialize == nil {
		serialize := true
		c.STT.Server.Serialize = &serialize
	}
	if c.STT.CLI.Bin == "" {
		c.STT.CLI.Bin = "whisper-cli"
	}
	if c.STT.CLI.MaxConcurrent == 0 {
		c.STT.CLI.MaxConcurrent = 1
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderGemini
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 30 * time.Second
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.WhisperModel == "" {
		c.OpenAI.WhisperModel = "whisper-1"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.STT.Engine {
	case EngineWhisperServer, EngineOpenAI, EngineNone:
	case EngineWhisperCLI:
		if c.STT.CLI.Model == "" {
			result = multierror.Append(result, errors.New("stt.cli.model is required for the whisper-cli engine"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown stt.engine %q", c.STT.Engine))
	}

	if c.STT.Engine == EngineOpenAI && c.OpenAI.APIKey == "" {
		result = multierror.Append(result, errors.New("openai.api_key is required for the openai stt engine"))
	}

	switch c.Generation.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown generation.provider %q", c.Generation.Provider))
	}

	if c.Upload.MaxBytes < 0 {
		result = multierror.Append(result, fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if c.STT.CLI.MaxConcurrent < 0 {
		result = multierror.Append(result, fmt.Errorf("stt.cli.max_concurrent must be positive, got %d", c.STT.CLI.MaxConcurrent))
	}
	if t := c.Generation.Sampling.Temperature; t != nil && (*t < 0 || *t > 2) {
		result = multierror.Append(result, fmt.Errorf("generation.sampling.temperature must be within [0, 2], got %g", *t))
	}
	if p := c.Generation.Sampling.TopP; p != nil && (*p < 0 || *p > 1) {
		result = multierror.Append(result, fmt.Errorf("generation.sampling.top_p must be within [0, 1], got %g", *p))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json", "plain":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// APIKey returns the key of the configured generation provider.
func (c *Config) APIKey() string {
	switch c.Generation.Provider {
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderAnthropic:
		return c.Anthropic.APIKey
	default:
		return c.Gemini.APIKey
	}
}
