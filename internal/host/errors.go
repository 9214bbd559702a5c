package host

import "errors"

// Sentinel errors for the host graph. Check with errors.Is.
var (
	// ErrNoSuchObject is returned when an index names no card, device,
	// stream, combine sink or loopback.
	ErrNoSuchObject = errors.New("host: no such object")

	// ErrNoSuchProfile is returned when a card does not offer a profile.
	ErrNoSuchProfile = errors.New("host: no such profile")

	// ErrNoSuchPort is returned when a device does not offer a port.
	ErrNoSuchPort = errors.New("host: no such port")

	// ErrPortUnavailable is returned when switching to an unplugged port.
	ErrPortUnavailable = errors.New("host: port unavailable")

	// ErrDirectionMismatch is returned when a stream is moved to a device
	// of the wrong direction.
	ErrDirectionMismatch = errors.New("host: direction mismatch")

	// ErrInvalidEvent is returned when a bridge event cannot be applied.
	ErrInvalidEvent = errors.New("host: invalid event")
)
