// Package settings persists user-editable key-value settings such as the
// wake word. Values live in a single JSON object at
// $XDG_CONFIG_HOME/elizabet/settings.json (~/.config/elizabet/settings.json).
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// FileStore is a key-value store backed by one JSON file.
type FileStore struct {
	fs   afero.Fs
	path string

	mu     sync.Mutex
	values map[string]string
}

// Dir returns the elizabet config directory.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "elizabet"), nil
}

// DefaultPath returns the path of the settings file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Open loads the settings file at path. A missing file is an empty store.
func Open(fs afero.Fs, path string) (*FileStore, error) {
	s := &FileStore{fs: fs, path: path, values: map[string]string{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenDefault opens the settings file on the OS filesystem.
func OpenDefault() (*FileStore, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("resolving settings path: %w", err)
	}
	return Open(afero.NewOsFs(), path)
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Reload re-reads the backing file, replacing the cached values.
func (s *FileStore) Reload() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.values = map[string]string{}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	values := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("failed to parse settings %s: %w", s.path, err)
		}
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Get returns the value stored under key.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and writes the file atomically.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+1)
	for k, v := range s.values {
		next[k] = v
	}
	next[key] = value

	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// write marshals values and replaces the file via a temp file + rename.
func (s *FileStore) write(values map[string]string) (err error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "settings-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			s.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	if err = s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}
