package assistant

import "time"

// Error reasons reported by recognition engines through Callbacks.OnError.
const (
	// ReasonNotAllowed means the user denied microphone access.
	ReasonNotAllowed = "not-allowed"
	// ReasonUnsupported means the host has no recognition capability.
	ReasonUnsupported = "unsupported"
)

// Callbacks is the surface an Engine reports through. Engines may invoke
// callbacks from any goroutine, including synchronously from Start or Stop.
type Callbacks struct {
	OnStart  func()
	OnResult func(Batch)
	OnError  func(reason string)
	OnEnd    func()
}

// Engine is a continuous speech recognition engine. Start may be called
// again on the same instance after it has ended.
type Engine interface {
	Start(cb Callbacks) error
	Stop() error
}

// EngineFactory creates the engine instance bound to one listening session.
// It returns ErrCapabilityUnavailable when the host cannot recognize speech.
type EngineFactory func() (Engine, error)

// Clock schedules the restart callback. It exists so tests can fire
// restarts deterministically.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
