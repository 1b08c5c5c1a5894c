// Package uploads keeps uploaded images on disk for the duration of a single request.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes bounds a single upload.
const DefaultMaxBytes int64 = 10 << 20

const fileSuffix = ".upload"

var (
	// ErrNotImage is returned when the uploaded content is not an image.
	ErrNotImage = errors.New("uploaded file is not an image")
	// ErrTooLarge is returned when the upload exceeds the size limit.
	ErrTooLarge = errors.New("uploaded file is too large")
	// ErrEmpty is returned for a zero-byte upload.
	ErrEmpty = errors.New("uploaded file is empty")
)

// Store writes uploads to a dedicated directory.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the directory if needed. maxBytes <= 0 uses DefaultMaxBytes.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "agrimitra-uploads")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes r to a new file and sniffs its type. Rejected uploads are removed before
// returning. The caller owns the returned path and must Remove it.
func (s *Store) Save(r io.Reader) (path, mimeType string, err error) {
	f, err := os.CreateTemp(s.dir, uuid.NewString()+"-*"+fileSuffix)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	name := f.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}
	if n == 0 {
		return "", "", ErrEmpty
	}
	if n > s.maxBytes {
		return "", "", ErrTooLarge
	}

	mtype, err := mimetype.DetectFile(name)
	if err != nil {
		return "", "", fmt.Errorf("failed to detect upload type: %w", err)
	}
	if !isImage(mtype) {
		return "", "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}
	return name, mtype.String(), nil
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// Read returns the content of a stored upload.
func (s *Store) Read(path string) ([]byte, error) {
	if !s.owns(path) {
		return nil, fmt.Errorf("path %q is outside the upload directory", path)
	}
	return os.ReadFile(path)
}

// Remove deletes a stored upload. Removing a missing file is not an error.
func (s *Store) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("path %q is outside the upload directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !strings.ContainsRune(rel, filepath.Separator)
}

// Sweep removes uploads last modified more than maxAge before now and returns how many
// were removed. Files without the upload suffix are left alone.
func (s *Store) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list upload directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove stale upload", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
