package domain

import (
	"io"
	"strings"
	"time"
)

// UploadedAudio is an audio file received from a client. It only lives for
// the duration of one request.
type UploadedAudio struct {
	Filename string
	Body     io.Reader
}

// Segment is a contiguous piece of recognized speech.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

type Transcript struct {
	Segments []Segment
}

// Text joins the segment texts in order with single spaces.
// Whitespace-only segments are skipped.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// Duration returns the end time of the last segment.
func (t Transcript) Duration() time.Duration {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}
