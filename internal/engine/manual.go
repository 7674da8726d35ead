// Package engine provides speech recognition engines for the assistant
// session: a line reader for terminals and pipes, a WebSocket relay to a
// browser's speech recognition, and a manual engine for scripted input.
package engine

import (
	"sync"

	"github.com/fakeyudi/elizabet/internal/assistant"
)

// Manual is an engine driven by its caller. Start and Stop invoke the
// OnStart and OnEnd callbacks synchronously.
type Manual struct {
	mu      sync.Mutex
	cb      assistant.Callbacks
	running bool
	starts  int
}

// NewManual returns a stopped manual engine.
func NewManual() *Manual { return &Manual{} }

func (m *Manual) Start(cb assistant.Callbacks) error {
	m.mu.Lock()
	m.cb = cb
	m.running = true
	m.starts++
	m.mu.Unlock()

	if cb.OnStart != nil {
		cb.OnStart()
	}
	return nil
}

func (m *Manual) Stop() error {
	m.End()
	return nil
}

// Emit delivers a result batch while the engine runs.
func (m *Manual) Emit(b assistant.Batch) {
	cb, ok := m.active()
	if ok && cb.OnResult != nil {
		cb.OnResult(b)
	}
}

// Fail reports an engine error while the engine runs.
func (m *Manual) Fail(reason string) {
	cb, ok := m.active()
	if ok && cb.OnError != nil {
		cb.OnError(reason)
	}
}

// End stops the engine as if recognition ended on its own.
func (m *Manual) End() {
	m.mu.Lock()
	cb, was := m.cb, m.running
	m.running = false
	m.mu.Unlock()

	if was && cb.OnEnd != nil {
		cb.OnEnd()
	}
}

// Running reports whether the engine is started.
func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Starts reports how many times Start was called.
func (m *Manual) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

func (m *Manual) active() (assistant.Callbacks, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cb, m.running
}
