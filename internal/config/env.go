package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvFile is read from the working directory for ELIZABET_* overrides.
const EnvFile = ".env"

// envKeys maps environment variables to the fields they override.
var envKeys = map[string]func(*Config) *string{
	"ELIZABET_LANGUAGE":      func(c *Config) *string { return &c.Language },
	"ELIZABET_RESTART_DELAY": func(c *Config) *string { return &c.RestartDelay },
	"ELIZABET_SEARCH_URL":    func(c *Config) *string { return &c.SearchURL },
	"ELIZABET_ENGINE":        func(c *Config) *string { return &c.Engine },
	"ELIZABET_RELAY_ADDR":    func(c *Config) *string { return &c.RelayAddr },
	"ELIZABET_LOG_FILE":      func(c *Config) *string { return &c.LogFile },
}

// LoadEnv builds the override layer from ELIZABET_* variables. Values in
// .env are used when the process environment does not set them. Returns
// nil when nothing is set.
func LoadEnv() (*Config, error) {
	file, err := godotenv.Read(EnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}

	var cfg Config
	found := false
	for key, field := range envKeys {
		v, ok := os.LookupEnv(key)
		if !ok {
			v, ok = file[key]
		}
		if ok && v != "" {
			*field(&cfg) = v
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return &cfg, nil
}
