// Package config loads the assistant's JSON configuration: a global file
// merged with an optional per-project override.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
)

// Engine names accepted in Config.Engine.
const (
	EngineStdin = "stdin"
	EngineRelay = "relay"
)

// ProjectFile is the per-directory override file name.
const ProjectFile = ".elizabetconfig"

// Config holds all configurable elizabet settings. The wake word is not
// part of it; it lives in the settings store so the UI can change it.
type Config struct {
	Language       string `json:"language"`
	RestartDelay   string `json:"restart_delay"` // time.ParseDuration syntax
	SearchURL      string `json:"search_url"`
	Engine         string `json:"engine"` // "stdin" | "relay"
	RelayAddr      string `json:"relay_addr"`
	LogFile        string `json:"log_file"`
	PersistHistory *bool  `json:"persist_history,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	persist := true
	return Config{
		Language:       "pt-BR",
		RestartDelay:   "1s",
		SearchURL:      "https://www.youtube.com/results?search_query=",
		Engine:         EngineStdin,
		RelayAddr:      "127.0.0.1:8765",
		PersistHistory: &persist,
	}
}

// GlobalPath returns ~/.config/elizabet/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "elizabet", "config.json"), nil
}

// LoadGlobal reads the global config file. Returns defaults if it is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .elizabetconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge layers project over global over defaults, field by field. Empty
// strings and nil pointers are treated as unset.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer != nil {
			result.overlay(*layer)
		}
	}
	return result
}

func (c *Config) overlay(o Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Language, o.Language)
	set(&c.RestartDelay, o.RestartDelay)
	set(&c.SearchURL, o.SearchURL)
	set(&c.Engine, o.Engine)
	set(&c.RelayAddr, o.RelayAddr)
	set(&c.LogFile, o.LogFile)
	if o.PersistHistory != nil {
		v := *o.PersistHistory
		c.PersistHistory = &v
	}
}

// Delay parses RestartDelay.
func (c Config) Delay() (time.Duration, error) {
	d, err := time.ParseDuration(c.RestartDelay)
	if err != nil {
		return 0, fmt.Errorf("restart_delay: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("restart_delay: must be positive, got %s", c.RestartDelay)
	}
	return d, nil
}

// Tag parses Language as a BCP 47 tag.
func (c Config) Tag() (language.Tag, error) {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.Und, fmt.Errorf("language %q: %w", c.Language, err)
	}
	return tag, nil
}

// ShouldPersistHistory reports whether the action log is saved to disk.
func (c Config) ShouldPersistHistory() bool {
	return c.PersistHistory == nil || *c.PersistHistory
}

// Validate checks the fields that are parsed lazily.
func (c Config) Validate() error {
	if c.Engine != EngineStdin && c.Engine != EngineRelay {
		return fmt.Errorf("engine: unknown %q (want %q or %q)", c.Engine, EngineStdin, EngineRelay)
	}
	if _, err := c.Delay(); err != nil {
		return err
	}
	if _, err := c.Tag(); err != nil {
		return err
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
