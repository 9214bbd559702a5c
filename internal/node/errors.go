package node

import "errors"

// Sentinel errors for the node package. Check with errors.Is.
var (
	// ErrNodeNotFound is returned when an ID or key is not registered.
	ErrNodeNotFound = errors.New("node: not found")

	// ErrNodeExists is returned when creating a node whose key is taken.
	ErrNodeExists = errors.New("node: already exists")

	// ErrInvalidNode is returned when a node record fails validation.
	ErrInvalidNode = errors.New("node: invalid")
)
