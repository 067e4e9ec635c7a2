package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/artie-labs/starsync/lib/blob"
)

// Store keeps objects as files under a directory, used for local runs.
type Store struct {
	directory string
}

func NewStore(directory string) (*Store, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %q: %w", directory, err)
	}
	return &Store{directory: directory}, nil
}

func (s *Store) path(key string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("key %q escapes %q", key, s.directory)
	}
	return filepath.Join(s.directory, filepath.FromSlash(key)), nil
}

func (s *Store) ReadText(_ context.Context, key string) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	bytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read %q: %w", path, blob.ErrNotFound)
		}
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}

	return string(bytes), nil
}

// WriteText replaces the file atomically so a crash never leaves a partially written object behind.
func (s *Store) WriteText(_ context.Context, key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %q: %w", tmp.Name(), err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", tmp.Name(), err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}

	return nil
}
