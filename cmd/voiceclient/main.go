package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voice-assistant/internal/client"
	"voice-assistant/internal/infra/audio"
	"voice-assistant/internal/infra/logging"
)

const recordSampleRate = 16000

func main() {
	os.Exit(run())
}

func run() int {
	// VA_SERVER_URL may come from .env, so it is loaded before flags are defined
	envErr := loadEnvFile(".env")

	defaultServer := os.Getenv("VA_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8000"
	}

	server := flag.String("server", defaultServer, "voice assistant backend URL")
	file := flag.String("file", "", "audio file to send")
	record := flag.Bool("record", false, "record from the microphone instead of reading -file")
	duration := flag.Duration("duration", 10*time.Second, "maximum recording length")
	timeout := flag.Duration("timeout", 2*time.Minute, "HTTP timeout per request")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, Format: logging.FormatText, Output: os.Stderr})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if envErr != nil {
		logger.Warn("loading env file", "path", ".env", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := *file
	if *record {
		recorded, err := recordToFile(ctx, audio.NewRecorder(recordSampleRate, logger.Logger), *duration)
		if err != nil {
			logger.Error("recording", "error", err)
			return 1
		}
		defer os.Remove(recorded)
		path = recorded
	}

	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: voiceclient -file recording.wav | -record [-duration 10s]")
		return 2
	}

	c := client.New(*server, *timeout)

	if err := converse(ctx, c, path); err != nil {
		var apiErr *client.Error
		if errors.As(err, &apiErr) {
			logger.Error("server error", "status", apiErr.StatusCode, "detail", apiErr.Detail)
		} else {
			logger.Error("request failed", "error", err)
		}
		return 1
	}
	return 0
}

// converse transcribes the recording and asks the transcript as a question.
// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func converse(ctx context.Context, c *client.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	text, err := c.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}

	fmt.Printf("You asked: %s\n", text)
	if strings.TrimSpace(text) == "" {
		fmt.Println("(no speech detected)")
		return nil
	}

	answer, err := c.Ask(ctx, text)
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	fmt.Printf("AI Response: %s\n", answer)
	return nil
}

func recordToFile(ctx context.Context, recorder *audio.Recorder, maxDuration time.Duration) (string, error) {
	if !recorder.Available() {
		return "", errors.New("microphone not available: rebuild with -tags portaudio")
	}

	fmt.Fprintln(os.Stderr, "Recording... speak now")
	samples, err := recorder.Record(ctx, maxDuration)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", errors.New("no audio captured")
	}

	f, err := os.CreateTemp("", "voiceclient_*.wav")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := audio.WriteWAV(path, samples, recordSampleRate, 1); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
