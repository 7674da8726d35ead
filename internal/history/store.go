package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store persists the action log.
type Store interface {
	Save(entries []Entry) error
	Load() ([]Entry, error) // returns nil, nil if nothing was saved yet
}

// fileStore is the concrete Store that writes to the XDG data directory.
type fileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore returns a Store writing to path on fs.
func NewFileStore(fs afero.Fs, path string) Store {
	return &fileStore{fs: fs, path: path}
}

// NewDefaultStore returns a Store backed by the XDG data directory.
// Path: $XDG_DATA_HOME/elizabet/history.json or ~/.local/share/elizabet/history.json
func NewDefaultStore() (Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return NewFileStore(afero.NewOsFs(), filepath.Join(dir, "history.json")), nil
}

func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "elizabet"), nil
}

// Save marshals entries to JSON and writes them atomically via a temp file
// + Rename.
func (f *fileStore) Save(entries []Entry) (err error) {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	tmp, err := afero.TempFile(f.fs, dir, "history-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			f.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	if err = f.fs.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}

// Load reads the history file. A missing file yields no entries.
func (f *fileStore) Load() ([]Entry, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return entries, nil
}
