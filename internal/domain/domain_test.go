package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"voice-assistant/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	inputs := []string{"Hello", "What is the capital of France?", "multi\nline", ""}

	for _, input := range inputs {
		prompt := domain.BuildPrompt(input)

		if !strings.HasPrefix(prompt, domain.SystemPrompt) {
			t.Errorf("prompt for %q does not start with the system prompt", input)
		}

		wantSuffix := "User: " + input + "\nAssistant:"
		if !strings.HasSuffix(prompt, wantSuffix) {
			t.Errorf("prompt for %q: got suffix %q, want %q", input, prompt[len(prompt)-len(wantSuffix):], wantSuffix)
		}

		if again := domain.BuildPrompt(input); again != prompt {
			t.Errorf("prompt for %q is not deterministic", input)
		}
	}
}

func TestBuildPrompt_Layout(t *testing.T) {
	got := domain.BuildPrompt("Hello")
	want := domain.SystemPrompt + "\n\nUser: Hello\nAssistant:"
	if got != want {
		t.Errorf("BuildPrompt: got %q, want %q", got, want)
	}
}

func TestTranscript_Text(t *testing.T) {
	tests := []struct {
		name     string
		segments []domain.Segment
		want     string
	}{
		{name: "no segments", want: ""},
		{
			name:     "single segment",
			segments: []domain.Segment{{Text: " Hello world."}},
			want:     "Hello world.",
		},
		{
			name: "ordered join",
			segments: []domain.Segment{
				{Text: " And so my fellow Americans,", End: 2 * time.Second},
				{Text: " ask not what your country can do for you.", End: 5 * time.Second},
			},
			want: "And so my fellow Americans, ask not what your country can do for you.",
		},
		{
			name: "blank segments skipped",
			segments: []domain.Segment{
				{Text: "one"},
				{Text: "   "},
				{Text: "two"},
			},
			want: "one two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.Transcript{Segments: tt.segments}.Text()
			if got != tt.want {
				t.Errorf("Text: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranscript_Duration(t *testing.T) {
	tr := domain.Transcript{Segments: []domain.Segment{
		{Text: "a", End: time.Second},
		{Text: "b", Start: time.Second, End: 3 * time.Second},
	}}
	if got := tr.Duration(); got != 3*time.Second {
		t.Errorf("Duration: got %s, want 3s", got)
	}
	if got := (domain.Transcript{}).Duration(); got != 0 {
		t.Errorf("empty Duration: got %s, want 0", got)
	}
}

func TestGeneration_Reply(t *testing.T) {
	tests := []struct {
		gen  domain.Generation
		want string
	}{
		{domain.Generation{Text: "Hi there!"}, "Hi there!"},
		{domain.Generation{Failure: domain.FailureEmpty}, domain.FallbackNoAnswer},
		{domain.Generation{Failure: domain.FailureTimeout}, domain.FallbackError},
		{domain.Generation{Failure: domain.FailureTransport}, domain.FallbackError},
		{domain.Generation{Failure: domain.FailureAPIPermanent}, domain.FallbackError},
	}

	for _, tt := range tests {
		if got := tt.gen.Reply(); got != tt.want {
			t.Errorf("Reply(%q): got %q, want %q", tt.gen.Failure, got, tt.want)
		}
	}

	if got := domain.FallbackError; got != "I encountered an error while processing your request." {
		t.Errorf("FallbackError changed: %q", got)
	}
}

func TestDefaultSampling(t *testing.T) {
	s := domain.DefaultSampling()
	if s.Temperature != 0.7 || s.TopP != 0.8 || s.TopK != 40 || s.CandidateCount != 1 || s.MaxOutputTokens != 2048 {
		t.Errorf("unexpected sampling: %+v", s)
	}
	if len(s.StopSequences) != 2 || s.StopSequences[0] != "User:" || s.StopSequences[1] != "Assistant:" {
		t.Errorf("StopSequences: got %v", s.StopSequences)
	}
}

func TestErrors_Unwrap(t *testing.T) {
	base := errors.New("disk full")

	uploadErr := error(&domain.UploadError{Op: "write", Err: base})
	if !errors.Is(uploadErr, base) {
		t.Error("UploadError does not unwrap")
	}

	trErr := error(&domain.TranscriptionError{Filename: "a.wav", Err: base})
	if !errors.Is(trErr, base) {
		t.Error("TranscriptionError does not unwrap")
	}
	if !strings.Contains(trErr.Error(), "a.wav") {
		t.Errorf("TranscriptionError message: %q", trErr.Error())
	}
}
