package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/elizabet/internal/config"
	"github.com/fakeyudi/elizabet/internal/telemetry"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "elizabet",
	Short: "Voice assistant that waits for a wake word and runs spoken commands",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		env, err := config.LoadEnv()
		if err != nil {
			return fmt.Errorf("loading environment: %w", err)
		}
		if env != nil {
			cfg = config.Merge(&cfg, env)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// Diagnostics go to a file; the terminal belongs to the action log.
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
		if err := telemetry.Setup(f); err != nil {
			return fmt.Errorf("installing telemetry: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	err := rootCmd.Execute()
	_ = telemetry.Shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// logPath returns path, or $XDG_STATE_HOME/elizabet/elizabet.log when empty.
func logPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "elizabet", "elizabet.log"), nil
}

func openLogFile(path string) (*os.File, error) {
	path, err := logPath(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
