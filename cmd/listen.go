package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/browser"
	"github.com/fakeyudi/elizabet/internal/config"
	"github.com/fakeyudi/elizabet/internal/engine"
	"github.com/fakeyudi/elizabet/internal/history"
	"github.com/fakeyudi/elizabet/internal/settings"
	"github.com/fakeyudi/elizabet/internal/tui"
)

var (
	listenEngine string
	listenPlain  bool
	listenNoOpen bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen continuously for the wake word and run commands",
	Long: `Listen continuously for the wake word and run the command that follows it.

The stdin engine reads one utterance per line: "~text" is an interim result,
"!reason" reports a recognition error, anything else is a final result.
The relay engine serves a page that runs the browser's speech recognition.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := GetConfig()
		kind := conf.Engine
		if listenEngine != "" {
			kind = listenEngine
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch kind {
		case config.EngineStdin:
			return listenLines(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		case config.EngineRelay:
			return listenRelay(ctx, cmd.OutOrStdout(), conf)
		default:
			return fmt.Errorf("unknown engine %q", kind)
		}
	},
}

// listenLines runs the session over line input until it is exhausted or
// ctx is cancelled. The terminal is shared with the input, so output is
// always plain.
func listenLines(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := engine.NewLines(in)
	a, err := newApp(appOptions{
		ctx:       ctx,
		newEngine: func() (assistant.Engine, error) { return lines, nil },
		opener:    browser.System{Logger: slog.Default()},
	})
	if err != nil {
		return err
	}
	defer a.close()
	a.log.Subscribe(printEntry(out))

	if err := a.session.Start(assistant.Config{}); err != nil {
		return err
	}
	defer watchInBackground(ctx, a)()

	select {
	case <-ctx.Done():
	case <-lines.Done():
	}
	return nil
}

// listenRelay serves the relay page and runs the session over it, on the
// TUI when stdout is a terminal.
func listenRelay(ctx context.Context, out io.Writer, conf config.Config) error {
	relay := engine.NewRelay(conf.RelayAddr, conf.Language, slog.Default().With("component", "relay"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() { serveErr <- relay.ListenAndServe(ctx) }()

	interactive := !listenPlain && term.IsTerminal(os.Stdout.Fd())

	var program *tea.Program
	onChange := func(s assistant.Snapshot) {
		if program != nil {
			program.Send(tui.SnapshotMsg(s))
		}
	}
	a, err := newApp(appOptions{
		ctx:       ctx,
		newEngine: func() (assistant.Engine, error) { return relay, nil },
		opener:    browser.System{Logger: slog.Default()},
		onChange:  onChange,
	})
	if err != nil {
		return err
	}
	defer a.close()

	if !listenNoOpen {
		if err := (browser.System{}).Open(ctx, relay.URL()); err != nil {
			slog.Warn("open relay page", "error", err)
		}
	}
	fmt.Fprintf(out, "Página de reconhecimento: %s\n", relay.URL())

	if !interactive {
		a.log.Subscribe(printEntry(out))
		if err := a.session.Start(assistant.Config{}); err != nil {
			return err
		}
		defer watchInBackground(ctx, a)()

		select {
		case <-ctx.Done():
			return nil
		case err := <-serveErr:
			return err
		}
	}

	model := tui.New(a.session, a.session.Snapshot(), a.log.Entries())
	runErr := tui.Run(model, func(p *tea.Program) {
		program = p
		a.log.Subscribe(func(e history.Entry) { p.Send(tui.EntryMsg(e)) })
		go func() {
			_ = a.session.Start(assistant.Config{})
			watchSettings(ctx, a)
		}()
		go func() {
			select {
			case err := <-serveErr:
				if err != nil {
					slog.Error("relay stopped", "error", err)
				}
				p.Quit()
			case <-ctx.Done():
				p.Quit()
			}
		}()
	})
	a.session.Stop()
	return runErr
}

// watchInBackground runs watchSettings until the returned function is
// called, which waits for the watcher to exit.
func watchInBackground(ctx context.Context, a *app) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		watchSettings(ctx, a)
	}()
	return func() {
		cancel()
		<-done
	}
}

// watchSettings restarts the session when the wake word is changed in the
// settings file by another process.
func watchSettings(ctx context.Context, a *app) {
	err := settings.Watch(ctx, a.settings.Path(), func() {
		if err := a.settings.Reload(); err != nil {
			slog.Warn("reload settings", "error", err)
			return
		}
		stored, ok := a.settings.Get(assistant.KeyWakeWord)
		if !ok {
			return
		}
		want := assistant.NormalizeWakeWord(a.session.Language(), stored)
		if want == "" || want == a.session.Config().WakeWord {
			return
		}
		slog.Info("wake word changed externally", "wake_word", want)
		if err := a.session.Start(assistant.Config{WakeWord: want}); err != nil && !errors.Is(err, assistant.ErrCapabilityUnavailable) {
			slog.Warn("restart after settings change", "error", err)
		}
	})
	if err != nil {
		slog.Warn("watch settings", "error", err)
	}
}

func printEntry(out io.Writer) func(history.Entry) {
	return func(e history.Entry) {
		fmt.Fprintln(out, e.Text)
	}
}

func init() {
	listenCmd.Flags().StringVar(&listenEngine, "engine", "", `recognition engine: "stdin" or "relay" (default from config)`)
	listenCmd.Flags().BoolVar(&listenPlain, "plain", false, "plain text output instead of TUI")
	listenCmd.Flags().BoolVar(&listenNoOpen, "no-open", false, "do not open the relay page in a browser")
	rootCmd.AddCommand(listenCmd)
}
