package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Ning0612/unfold/internal/adapter"
	"github.com/Ning0612/unfold/internal/domain"
)

const tempSuffix = ".unfold.tmp"

// Store is the local destination. It answers existence and size probes
// and writes files for backends that stream content themselves.
// Every path it touches must resolve inside the destination root.
type Store struct {
	fs   afero.Fs
	root string
}

var _ adapter.LocalProbe = (*Store)(nil)

// New creates a store rooted at root on the host filesystem
func New(root string) (*Store, error) {
	return NewWithFs(afero.NewOsFs(), root)
}

// NewWithFs creates a store over any afero filesystem
func NewWithFs(fs afero.Fs, root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: destination directory is empty", domain.ErrConfigInvalid)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Store{fs: fs, root: absRoot}, nil
}

// Root returns the absolute destination directory
func (s *Store) Root() string {
	return s.root
}

// Fs returns the underlying filesystem
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// EnsureRoot creates the destination directory if needed
func (s *Store) EnsureRoot() error {
	info, err := s.fs.Stat(s.root)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", domain.ErrConfigInvalid, s.root)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return mapError(err)
	}
	return s.MkdirAll(s.root)
}

// Resolve returns the absolute form of path.
// Returns domain.ErrPermissionDenied if the path escapes the root.
func (s *Store) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty local path", domain.ErrPermissionDenied)
	}

	full, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}

	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrPermissionDenied, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", domain.ErrPermissionDenied, path, s.root)
	}

	return full, nil
}

// Stat reports whether a file exists at path and its size.
// A directory in place of the file counts as absent.
func (s *Store) Stat(path string) (adapter.LocalStat, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return adapter.LocalStat{}, err
	}

	info, err := s.fs.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return adapter.LocalStat{}, nil
		}
		return adapter.LocalStat{}, mapError(err)
	}
	if info.IsDir() {
		return adapter.LocalStat{}, nil
	}

	return adapter.LocalStat{Exists: true, Size: info.Size()}, nil
}

// MkdirAll creates a directory inside the root
func (s *Store) MkdirAll(path string) error {
	full, err := s.Resolve(path)
	if err != nil {
		return err
	}
	return mapError(s.fs.MkdirAll(full, 0o755))
}

// Write creates or overwrites a file. Content lands in a temp file first
// and is renamed into place, so a failed write never leaves a partial file
// at path.
func (s *Store) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.MkdirAll(filepath.Dir(full)); err != nil {
		return 0, err
	}

	tempPath := full + tempSuffix
	file, err := s.fs.Create(tempPath)
	if err != nil {
		return 0, mapError(err)
	}

	n, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		_ = s.fs.Remove(tempPath)
		return n, copyErr
	}
	if closeErr != nil {
		_ = s.fs.Remove(tempPath)
		return n, closeErr
	}

	if err := s.fs.Rename(tempPath, full); err != nil {
		_ = s.fs.Remove(tempPath)
		return n, mapError(err)
	}

	return n, nil
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if os.IsPermission(err) {
		return fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}
	return err
}
