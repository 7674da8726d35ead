package assistant

import "errors"

var (
	// ErrCapabilityUnavailable is returned when the environment provides no
	// speech recognition. The session never retries after it.
	ErrCapabilityUnavailable = errors.New("speech recognition unavailable")

	// ErrEmptyWakeWord is returned by SetWakeWord for blank input.
	ErrEmptyWakeWord = errors.New("wake word must not be empty")
)
