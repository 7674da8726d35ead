package assistant

// Mode is the session's current listening intent.
type Mode int

const (
	ModeWaiting Mode = iota // listening only for the wake word
	ModeActive              // capturing the next command
)

func (m Mode) String() string {
	switch m {
	case ModeWaiting:
		return "waiting"
	case ModeActive:
		return "active"
	}
	return "unknown"
}
