package whispercpp

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voice-assistant/internal/domain"
)

// verboseResponse is the verbose_json body of the whisper.cpp server.
type verboseResponse struct {
	Task     string           `json:"task,omitempty"`
	Language string           `json:"language,omitempty"`
	Duration float64          `json:"duration,omitempty"`
	Text     string           `json:"text"`
	Segments []verboseSegment `json:"segments,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type verboseSegment struct {
	ID    int     `json:"id"`
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (r verboseResponse) segments() []domain.Segment {
	if len(r.Segments) == 0 {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			return nil
		}
		return []domain.Segment{{Text: text, End: seconds(r.Duration)}}
	}

	out := make([]domain.Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		out = append(out, domain.Segment{
			Text:  s.Text,
			Start: seconds(s.Start),
			End:   seconds(s.End),
		})
	}
	return out
}

// cliLine matches whisper-cli result lines:
//
//	[00:00:00.000 --> 00:00:02.480]   And so my fellow Americans,
var cliLine = regexp.MustCompile(`^\[(\d+):(\d{2}):(\d{2})\.(\d{3}) --> (\d+):(\d{2}):(\d{2})\.(\d{3})\]\s*(.*)$`)

// ParseCLIOutput extracts timed segments from whisper-cli stdout. Lines
// without a timestamp prefix are ignored.
func ParseCLIOutput(out []byte) ([]domain.Segment, error) {
	var segments []domain.Segment

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		m := cliLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}

		start, err := timestamp(m[1:5])
		if err != nil {
			return nil, err
		}
		end, err := timestamp(m[5:9])
		if err != nil {
			return nil, err
		}

		segments = append(segments, domain.Segment{
			Text:  m[9],
			Start: start,
			End:   end,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning output: %w", err)
	}

	return segments, nil
}

func timestamp(parts []string) (time.Duration, error) {
	units := []time.Duration{time.Hour, time.Minute, time.Second, time.Millisecond}

	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("parsing timestamp %q: %w", strings.Join(parts, ":"), err)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
