package engine

import "errors"

// Domain errors for the engine.
var (
	// ErrMissingDependency is returned by New when a required dependency is nil.
	ErrMissingDependency = errors.New("engine: missing dependency")
)
