package policy

import "errors"

// Domain errors for policy loading.
var (
	// ErrInvalidPolicy is returned when the policy file fails validation.
	ErrInvalidPolicy = errors.New("policy: invalid")

	// ErrInvalidRule is returned when a classifier rule cannot be compiled.
	ErrInvalidRule = errors.New("policy: invalid classifier rule")
)
