package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/fakeyudi/elizabet/internal/assistant"
	"github.com/fakeyudi/elizabet/internal/command"
	"github.com/fakeyudi/elizabet/internal/history"
	"github.com/fakeyudi/elizabet/internal/settings"
)

// app is one assembled assistant: settings, action log, resolver and
// session, wired from the merged config.
type app struct {
	settings *settings.FileStore
	log      *history.Log
	resolver *command.Resolver
	session  *assistant.Session
}

type appOptions struct {
	ctx       context.Context
	newEngine assistant.EngineFactory
	opener    command.Opener
	onChange  func(assistant.Snapshot)
}

func newApp(c appOptions) (*app, error) {
	conf := GetConfig()
	tag, err := conf.Tag()
	if err != nil {
		return nil, err
	}
	delay, err := conf.Delay()
	if err != nil {
		return nil, err
	}

	path, err := settings.DefaultPath()
	if err != nil {
		return nil, err
	}
	store, err := settings.Open(afero.NewOsFs(), path)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	log, err := openHistory(conf.ShouldPersistHistory())
	if err != nil {
		return nil, err
	}

	resolver := command.New(command.Options{
		Opener:    c.opener,
		Log:       log,
		SearchURL: conf.SearchURL,
		Language:  tag,
	})
	session := assistant.New(assistant.Options{
		NewEngine:    c.newEngine,
		Store:        store,
		Log:          log,
		Dispatcher:   resolver,
		RestartDelay: delay,
		Language:     tag,
		Logger:       slog.Default().With("component", "session"),
		Context:      c.ctx,
		OnChange:     c.onChange,
	})
	return &app{settings: store, log: log, resolver: resolver, session: session}, nil
}

// close stops the session and waits for the action log to be written.
func (a *app) close() {
	a.session.Stop()
	if err := a.log.Close(); err != nil {
		slog.Warn("close history", "error", err)
	}
}

// openHistory returns the action log, seeded with the saved history when
// it is persisted.
func openHistory(persist bool) (*history.Log, error) {
	opts := []history.Option{history.WithLogger(slog.Default().With("component", "history"))}
	if !persist {
		return history.New(nil, opts...), nil
	}
	store, err := history.NewDefaultStore()
	if err != nil {
		return nil, err
	}
	previous, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return history.New(previous, append(opts, history.WithStore(store))...), nil
}
