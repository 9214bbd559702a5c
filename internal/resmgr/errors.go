package resmgr

import "errors"

// Domain errors for the resource manager bridge.
var (
	// ErrInvalidRequest is returned when a request cannot be decoded.
	ErrInvalidRequest = errors.New("resmgr: invalid request")
)
