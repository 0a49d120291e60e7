package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

const maxNameLen = 64

// TempStore stages uploaded files on disk for engines that need a path.
// Every staged file gets a unique name, so concurrent uploads that share
// an original filename never touch the same file.
type TempStore struct {
	dir      string
	maxBytes int64
}

func NewTempStore(dir string, maxBytes int64) *TempStore {
	if dir == "" {
		dir = os.TempDir()
	}
	return &TempStore{dir: dir, maxBytes: maxBytes}
}

func (s *TempStore) Dir() string {
	return s.dir
}

// Stage copies r into a new file and returns its path together with a
// release func that removes it. The caller must call release on every path.
func (s *TempStore) Stage(filename string, r io.Reader) (string, func() error, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating upload dir: %w", err)
	}

	path := filepath.Join(s.dir, "upload_"+uuid.NewString()+"_"+SafeFilename(filename))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	release := func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing temp file: %w", err)
		}
		return nil
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case err != nil:
		release()
		return "", nil, fmt.Errorf("writing temp file: %w", err)
	case closeErr != nil:
		release()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		release()
		return "", nil, ErrTooLarge
	}

	return path, release, nil
}

// SafeFilename reduces a client-supplied name to a short base name made of
// letters, digits, dots, dashes and underscores. The extension is kept
// because some engines sniff the format from it.
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(sb.String(), ".")
	if clean == "" {
		return "audio"
	}

	if len(clean) > maxNameLen {
		ext := filepath.Ext(clean)
		if len(ext) > 10 {
			ext = ""
		}
		clean = clean[:maxNameLen-len(ext)] + ext
	}

	return clean
}
