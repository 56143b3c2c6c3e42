// Package uploads stores files received over the API until a transcription
// has consumed them.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/services"
)

// ErrTooLarge marks an upload rejected for exceeding the size limit.
var ErrTooLarge = errors.New("upload too large")

// Store writes uploads into a single directory.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore prepares dir for uploads. maxMB <= 0 disables the size limit.
func NewStore(dir string, maxMB int) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "uploads", "init", "upload directory not configured", nil)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	var limit int64
	if maxMB > 0 {
		limit = int64(maxMB) << 20
	}
	return &Store{dir: abs, maxBytes: limit}, nil
}

// Dir returns the absolute upload directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the upload size limit, zero when unlimited.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save streams r into the upload directory under a unique name derived
// from name and returns the stored path.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	base, err := cleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, uuid.NewString()+"_"+base)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, err := io.Copy(out, src)
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = os.Remove(path)
		return "", services.Wrap(services.ErrValidation, "uploads", "save",
			fmt.Sprintf("upload exceeds %d MB limit", s.maxBytes>>20), ErrTooLarge)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// Remove deletes a stored upload. Paths outside the upload directory are
// rejected and a missing file is not an error.
func (s *Store) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve upload path: %w", err)
	}
	if !s.Contains(abs) {
		return services.Wrap(services.ErrValidation, "uploads", "remove",
			fmt.Sprintf("%s is outside the upload directory", path), nil)
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// Contains reports whether path names a file directly inside the upload directory.
func (s *Store) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !strings.ContainsRune(rel, filepath.Separator)
}

func cleanName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "", services.Wrap(services.ErrValidation, "uploads", "save", "upload filename is required", nil)
	}
	return base, nil
}
