// Package zone holds the audio zones of the installation.
//
// A zone is a named policy partition: the driver and rear seats of a car,
// or the kitchen and lounge of a house. Class map entries, and therefore
// routing decisions, are scoped to a zone. Zones are declared in the
// policy file and fixed for the life of the process.
package zone

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Default is the zone a node lands in when classification names none.
const Default = "default"

const (
	maxNameLength        = 50
	maxDescriptionLength = 100
	namePattern          = `^[a-z0-9]+(?:[-_][a-z0-9]+)*$`
)

var nameRegex = regexp.MustCompile(namePattern)

var (
	// ErrZoneNotFound is returned when a zone name is not declared.
	ErrZoneNotFound = errors.New("zone: not found")

	// ErrZoneExists is returned when a zone is declared twice.
	ErrZoneExists = errors.New("zone: already exists")

	// ErrInvalidZone is returned when a zone name or description fails validation.
	ErrInvalidZone = errors.New("zone: invalid")
)

// Zone is one audio zone.
type Zone struct {
	// Index is the declaration order, starting at 0.
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Table is the ordered set of zones.
type Table struct {
	zones  []Zone
	byName map[string]int
}

// NewTable returns a table holding only the default zone.
func NewTable() *Table {
	t := &Table{byName: make(map[string]int)}
	t.zones = append(t.zones, Zone{Index: 0, Name: Default, Description: "Unzoned endpoints"})
	t.byName[Default] = 0
	return t
}

// Add declares a zone.
func (t *Table) Add(name, description string) (Zone, error) {
	if err := ValidateName(name); err != nil {
		return Zone{}, err
	}
	description = strings.TrimSpace(description)
	if len(description) > maxDescriptionLength {
		return Zone{}, fmt.Errorf("%w: description of %q exceeds %d characters", ErrInvalidZone, name, maxDescriptionLength)
	}
	if _, ok := t.byName[name]; ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrZoneExists, name)
	}

	z := Zone{Index: len(t.zones), Name: name, Description: description}
	t.zones = append(t.zones, z)
	t.byName[name] = z.Index
	return z, nil
}

// Get returns the named zone.
func (t *Table) Get(name string) (Zone, error) {
	i, ok := t.byName[name]
	if !ok {
		return Zone{}, fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	return t.zones[i], nil
}

// Has reports whether the zone is declared.
func (t *Table) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// List returns the zones in declaration order.
func (t *Table) List() []Zone {
	out := make([]Zone, len(t.zones))
	copy(out, t.zones)
	return out
}

// ValidateName checks a zone name: lowercase alphanumerics separated by
// single hyphens or underscores.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidZone)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidZone, maxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q must be lowercase alphanumeric with hyphens or underscores", ErrInvalidZone, name)
	}
	return nil
}
