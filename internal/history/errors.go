package history

import "errors"

// Domain errors for route history.
var (
	// ErrInvalidRetention is returned by Prune for a non-positive period.
	ErrInvalidRetention = errors.New("history: retention must be positive")

	// ErrRecorderStopped is returned when a pass arrives after Stop.
	ErrRecorderStopped = errors.New("history: recorder stopped")

	// ErrQueueFull is returned when the write queue has no room.
	ErrQueueFull = errors.New("history: queue full")
)
