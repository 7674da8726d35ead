// Package assistant implements the wake word session: the state machine that
// turns a stream of recognition results into discrete voice commands, and
// the self-restarting lifecycle around the recognition engine.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

const (
	// KeyWakeWord is the settings key the wake word is persisted under.
	KeyWakeWord = "wakeWord"
	// DefaultWakeWord is used when no wake word has been persisted.
	DefaultWakeWord = "elizabet"
	// DefaultRestartDelay is the pause before restarting an ended engine.
	DefaultRestartDelay = time.Second
)

// Store is the key-value persistence the session keeps its settings in.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Sink receives action log entries. It is append-only.
type Sink interface {
	Append(text string)
}

// Dispatcher executes a captured command.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string)
}

// Config binds a listening session to a wake word.
type Config struct {
	WakeWord string
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	WakeWord  string
	Mode      Mode
	Listening bool
	// Preview is the utterance currently being captured.
	Preview string
}

// Options holds the collaborators a Session is built from. Store and
// NewEngine are required.
type Options struct {
	NewEngine  EngineFactory
	Store      Store
	Log        Sink
	Dispatcher Dispatcher

	Clock        Clock
	RestartDelay time.Duration
	Language     language.Tag
	Logger       *slog.Logger
	Context      context.Context

	// OnChange is called with the new state after every change. It runs
	// while the session is locked and must not call back into the session.
	OnChange func(Snapshot)
}

// Session owns one continuous listening session.
type Session struct {
	newEngine  EngineFactory
	store      Store
	log        Sink
	dispatcher Dispatcher
	clock      Clock
	delay      time.Duration
	match      *matcher
	logger     *slog.Logger
	ctx        context.Context
	onChange   func(Snapshot)

	// lifecycle serializes engine Start and Stop calls. It is never taken
	// from inside an engine callback.
	lifecycle sync.Mutex

	mu        sync.Mutex
	cfg       Config
	mode      Mode
	listening bool
	permanent bool // permission denied or unsupported; no restarts
	owner     string
	engine    Engine
	restart   Timer
	preview   string
}

// New creates a session in Waiting mode with the persisted wake word.
func New(opts Options) *Session {
	s := &Session{
		newEngine:  opts.NewEngine,
		store:      opts.Store,
		log:        opts.Log,
		dispatcher: opts.Dispatcher,
		clock:      opts.Clock,
		delay:      opts.RestartDelay,
		logger:     opts.Logger,
		ctx:        opts.Context,
		onChange:   opts.OnChange,
		mode:       ModeWaiting,
	}
	tag := opts.Language
	if tag == language.Und {
		tag = language.BrazilianPortuguese
	}
	s.match = newMatcher(tag)
	if s.log == nil {
		s.log = discardSink{}
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.delay <= 0 {
		s.delay = DefaultRestartDelay
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	s.cfg.WakeWord = s.storedWakeWord()
	return s
}

func (s *Session) storedWakeWord() string {
	if s.store != nil {
		if w, ok := s.store.Get(KeyWakeWord); ok {
			if w = s.match.normalize(w); w != "" {
				return w
			}
		}
	}
	return DefaultWakeWord
}

// Config returns the live configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Language is the tag wake words are matched and normalized under.
func (s *Session) Language() language.Tag {
	return s.match.tag
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		WakeWord:  s.cfg.WakeWord,
		Mode:      s.mode,
		Listening: s.listening,
		Preview:   s.preview,
	}
}

// Start begins a listening session bound to cfg.WakeWord, replacing any
// session already owned. An empty wake word falls back to the persisted one.
func (s *Session) Start(cfg Config) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.halt()

	wake := s.match.normalize(cfg.WakeWord)
	if wake == "" {
		wake = s.storedWakeWord()
	}

	var engine Engine
	err := ErrCapabilityUnavailable
	if s.newEngine != nil {
		engine, err = s.newEngine()
	}
	if err != nil {
		s.mu.Lock()
		s.cfg.WakeWord = wake
		s.failLocked(err)
		s.mu.Unlock()
		return fmt.Errorf("start listening: %w", err)
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.cfg = Config{WakeWord: wake}
	s.mode = ModeWaiting
	s.preview = ""
	s.permanent = false
	s.owner = token
	s.engine = engine
	s.notifyLocked()
	s.mu.Unlock()

	s.logger.Info("starting recognition", "wake_word", wake, "session", token)
	if err := engine.Start(s.callbacks(token)); err != nil {
		s.mu.Lock()
		if s.owner == token {
			s.owner = ""
			s.engine = nil
			s.failLocked(err)
		}
		s.mu.Unlock()
		return fmt.Errorf("start listening: %w", err)
	}
	return nil
}

// failLocked records a start failure. No retry follows it.
func (s *Session) failLocked(err error) {
	s.logger.Error("recognition unavailable", "error", err)
	s.listening = false
	if errors.Is(err, ErrCapabilityUnavailable) {
		s.permanent = true
		s.log.Append(msgUnavailable)
	} else {
		s.log.Append(msgEngineError(err.Error()))
	}
	s.notifyLocked()
}

// Stop disowns the current engine instance, cancels a pending restart and
// asks the engine to halt.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.halt()
}

// halt must be called with lifecycle held.
func (s *Session) halt() {
	s.mu.Lock()
	engine := s.engine
	token := s.owner
	s.owner = ""
	s.engine = nil
	if s.restart != nil {
		s.restart.Stop()
		s.restart = nil
	}
	if engine != nil {
		s.listening = false
		s.notifyLocked()
	}
	s.mu.Unlock()

	if engine != nil {
		s.logger.Info("stopping recognition", "session", token)
		if err := engine.Stop(); err != nil {
			s.logger.Warn("stop recognition", "error", err)
		}
	}
}

// callbacks binds engine callbacks to the owner token they were issued for.
// Callbacks from a disowned instance are dropped.
func (s *Session) callbacks(token string) Callbacks {
	return Callbacks{
		OnStart:  func() { s.guard(token, s.engineStartedLocked) },
		OnResult: func(b Batch) { s.guard(token, func() { s.transcriptLocked(b) }) },
		OnError:  func(reason string) { s.guard(token, func() { s.engineErrorLocked(reason) }) },
		OnEnd:    func() { s.guard(token, func() { s.engineEndedLocked(token) }) },
	}
}

func (s *Session) guard(token string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != token {
		return
	}
	fn()
	s.notifyLocked()
}

// OnTranscript feeds one engine result batch through the state machine.
func (s *Session) OnTranscript(b Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptLocked(b)
	s.notifyLocked()
}

// OnEngineError reports an engine error for the current instance.
func (s *Session) OnEngineError(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineErrorLocked(reason)
	s.notifyLocked()
}

// OnEngineEnded reports that the current engine instance stopped.
func (s *Session) OnEngineEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engineEndedLocked(s.owner)
	s.notifyLocked()
}

func (s *Session) engineStartedLocked() {
	s.listening = true
	s.log.Append(msgListening(s.cfg.WakeWord))
}

func (s *Session) transcriptLocked(b Batch) {
	final, interim := b.Split()

	if s.mode == ModeWaiting {
		if final != "" && s.match.contains(final, s.cfg.WakeWord) {
			s.mode = ModeActive
			s.preview = final
			s.log.Append(msgDetected(s.cfg.WakeWord))
		}
		return
	}

	if final == "" {
		s.preview = interim
		return
	}

	s.preview = final
	s.mode = ModeWaiting

	command := s.match.strip(final, s.cfg.WakeWord)
	if command == "" {
		s.log.Append(msgEmptyCommand)
		return
	}
	s.log.Append(msgUserSaid(command))
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(s.ctx, command)
	}
}

func (s *Session) engineErrorLocked(reason string) {
	s.logger.Warn("recognition error", "reason", reason)
	switch reason {
	case ReasonNotAllowed:
		s.permanent = true
		s.log.Append(msgPermissionDenied)
	case ReasonUnsupported:
		s.permanent = true
		s.log.Append(msgUnavailable)
	default:
		s.log.Append(msgEngineError(reason))
	}
	s.listening = false
}

func (s *Session) engineEndedLocked(token string) {
	s.listening = false
	if token == "" || s.owner != token || s.permanent {
		return
	}
	if s.restart != nil {
		s.restart.Stop()
	}
	s.logger.Debug("recognition ended, scheduling restart", "delay", s.delay, "session", token)
	s.restart = s.clock.AfterFunc(s.delay, func() { s.restartEngine(token) })
}

// restartEngine runs on the timer. It only proceeds while token is still
// the owner.
func (s *Session) restartEngine(token string) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.owner != token || s.engine == nil {
		s.mu.Unlock()
		return
	}
	s.restart = nil
	engine := s.engine
	s.mu.Unlock()

	s.logger.Info("restarting recognition", "session", token)
	if err := engine.Start(s.callbacks(token)); err != nil {
		s.logger.Error("restart recognition", "error", err)
		s.mu.Lock()
		if s.owner == token {
			s.listening = false
			s.log.Append(msgRestartFailed)
			s.notifyLocked()
		}
		s.mu.Unlock()
	}
}

// SetWakeWord normalizes, validates and persists a new wake word. It does
// not restart the session; callers Start again with the new Config.
func (s *Session) SetWakeWord(word string) error {
	wake := s.match.normalize(word)
	if wake == "" {
		return ErrEmptyWakeWord
	}
	if s.store != nil {
		if err := s.store.Set(KeyWakeWord, wake); err != nil {
			return fmt.Errorf("persist wake word: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.WakeWord = wake
	s.log.Append(msgWakeWordSaved(wake))
	s.notifyLocked()
	return nil
}

func (s *Session) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.snapshotLocked())
	}
}

type discardSink struct{}

func (discardSink) Append(string) {}
