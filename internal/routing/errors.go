package routing

import "errors"

// Sentinel errors for the routing package. Check with errors.Is.
var (
	// ErrGroupExists is returned when a routing group name is taken in its direction.
	ErrGroupExists = errors.New("routing: group already exists")

	// ErrGroupNotFound is returned when a class is mapped to an undeclared group.
	ErrGroupNotFound = errors.New("routing: group not found")

	// ErrInvalidGroup is returned when a group definition is incomplete.
	ErrInvalidGroup = errors.New("routing: invalid group")

	// ErrConstraintConflict is returned when a constraint key is reused
	// with a different name or predicate.
	ErrConstraintConflict = errors.New("routing: constraint conflict")

	// ErrInvalidConstraint is returned when a constraint definition or link is invalid.
	ErrInvalidConstraint = errors.New("routing: invalid constraint")

	// ErrConnectionExists is returned when an explicit route id is taken.
	ErrConnectionExists = errors.New("routing: connection already exists")

	// ErrConnectionNotFound is returned when an explicit route id is unknown.
	ErrConnectionNotFound = errors.New("routing: connection not found")

	// ErrInvalidRoute is returned when the endpoints of an explicit route
	// cannot be linked.
	ErrInvalidRoute = errors.New("routing: invalid route")
)
