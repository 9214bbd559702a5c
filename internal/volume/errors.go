package volume

import "errors"

// Domain errors for the volume limiter.
var (
	// ErrInvalidRule is returned when a limit rule is malformed.
	ErrInvalidRule = errors.New("volume: invalid limit rule")
)
