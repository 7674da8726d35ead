// Package history holds the assistant's append-only action log.
package history

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one line of the action log.
type Entry struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Kind classifies an entry by its speaker prefix.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindSystem    Kind = "system"
	KindError     Kind = "error"
	KindConfig    Kind = "config"
)

// Kind reports who produced the entry.
func (e Entry) Kind() Kind {
	switch {
	case strings.HasPrefix(e.Text, "Você:"):
		return KindUser
	case strings.HasPrefix(e.Text, "Assistente:"):
		return KindAssistant
	case strings.HasPrefix(e.Text, "Erro:"):
		return KindError
	case strings.HasPrefix(e.Text, "Config:"):
		return KindConfig
	}
	return KindSystem
}

// Log is an append-only, ordered sequence of entries. Subscribers are
// notified of each appended entry in order. With a store, a background
// writer persists the latest snapshot; appends made while a save is in
// flight are folded into the next one.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	subs    []func(Entry)
	store   Store
	now     func() time.Time
	logger  *slog.Logger
	saveErr error

	dirty     chan struct{}
	quit      chan struct{}
	saved     chan struct{}
	closeOnce sync.Once
}

// Option configures a Log.
type Option func(*Log)

// WithStore persists the log in the background after appends.
func WithStore(store Store) Option {
	return func(l *Log) { l.store = store }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the logger persistence failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New creates a log seeded with previous entries.
func New(previous []Entry, opts ...Option) *Log {
	l := &Log{
		entries: append([]Entry(nil), previous...),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.store != nil {
		l.dirty = make(chan struct{}, 1)
		l.quit = make(chan struct{})
		l.saved = make(chan struct{})
		go l.saveLoop()
	}
	return l
}

func (l *Log) saveLoop() {
	defer close(l.saved)
	for {
		select {
		case <-l.dirty:
			l.save()
		case <-l.quit:
			select {
			case <-l.dirty:
				l.save()
			default:
			}
			return
		}
	}
}

func (l *Log) save() {
	snapshot := l.Entries()
	err := l.store.Save(snapshot)
	if err != nil {
		l.logger.Warn("persist history", "error", err, "entries", len(snapshot))
	}
	l.mu.Lock()
	l.saveErr = err
	l.mu.Unlock()
}

// Close writes any entries not yet persisted and stops the background
// writer. It returns the result of the last save. Entries appended after
// Close are kept in memory only.
func (l *Log) Close() error {
	if l.store == nil {
		return nil
	}
	l.closeOnce.Do(func() { close(l.quit) })
	<-l.saved
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveErr
}

// Append adds text as a new entry. Subscribers run before Append returns,
// in append order.
func (l *Log) Append(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{ID: uuid.New().String(), Time: l.now(), Text: text}
	l.entries = append(l.entries, e)
	if l.dirty != nil {
		select {
		case l.dirty <- struct{}{}:
		default:
		}
	}
	for _, fn := range l.subs {
		fn(e)
	}
}

// Subscribe registers fn to be called with every new entry.
func (l *Log) Subscribe(fn func(Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Entries returns a copy of all entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
