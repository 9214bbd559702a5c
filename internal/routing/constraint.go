package routing

import (
	"fmt"
	"reflect"

	"github.com/nerrad567/gray-logic-audio/internal/idlist"
	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// ConstraintFunc reports whether candidate must be blocked while owner
// is being considered. Both are members of the same constraint.
type ConstraintFunc func(candidate, owner *node.Node) bool

// Constraint is a named predicate over a set of linked device nodes.
type Constraint struct {
	Name string
	Key  string

	fn    ConstraintFunc
	nodes *idlist.List[node.ID, *node.Node]
}

// Nodes returns the IDs of the linked nodes in link order.
func (c *Constraint) Nodes() []node.ID {
	return c.nodes.Keys()
}

// CreateConstraint defines a constraint, or returns the existing one when
// key is already defined with the same name and predicate. Predicates
// are compared by code identity, so two closures built by the same
// function literal match.
//
// Returns:
//   - *Constraint: The new or existing definition
//   - error: ErrInvalidConstraint, or ErrConstraintConflict when key is
//     taken by a different definition
func (r *Router) CreateConstraint(name, key string, fn ConstraintFunc) (*Constraint, error) {
	if name == "" || key == "" || fn == nil {
		return nil, fmt.Errorf("%w: name %q key %q", ErrInvalidConstraint, name, key)
	}
	if c, ok := r.constraints[key]; ok {
		if c.Name == name && samePredicate(c.fn, fn) {
			return c, nil
		}
		return nil, fmt.Errorf("%w: key %q is held by %q", ErrConstraintConflict, key, c.Name)
	}

	c := &Constraint{
		Name:  name,
		Key:   key,
		fn:    fn,
		nodes: idlist.New[node.ID, *node.Node](),
	}
	r.constraints[key] = c
	r.logger.Debug("constraint created", "name", name, "key", key)
	return c, nil
}

// Constraint returns the constraint defined under key, or nil.
func (r *Router) Constraint(key string) *Constraint {
	return r.constraints[key]
}

// DestroyConstraint unlinks every node from the constraint and forgets it.
func (r *Router) DestroyConstraint(key string) {
	c, ok := r.constraints[key]
	if !ok {
		return
	}
	for _, id := range c.nodes.Keys() {
		r.unlink(c, id)
	}
	delete(r.constraints, key)
}

// AddConstraintNode links a registered device node to c.
func (r *Router) AddConstraintNode(c *Constraint, n *node.Node) error {
	if c == nil || r.constraints[c.Key] != c {
		return fmt.Errorf("%w: unknown constraint", ErrInvalidConstraint)
	}
	if n == nil || n.Implement != node.Device || r.registry.FindByIndex(n.ID) != n {
		return fmt.Errorf("%w: %v is not a registered device", ErrInvalidConstraint, n)
	}

	c.nodes.PushBack(n.ID, n)
	links, ok := r.links[n.ID]
	if !ok {
		links = idlist.New[string, *Constraint]()
		r.links[n.ID] = links
	}
	links.PushBack(c.Key, c)
	return nil
}

// RemoveConstraintNode unlinks n from c.
func (r *Router) RemoveConstraintNode(c *Constraint, n *node.Node) {
	if c == nil || n == nil {
		return
	}
	r.unlink(c, n.ID)
}

func (r *Router) unlink(c *Constraint, id node.ID) {
	c.nodes.Remove(id)
	if links, ok := r.links[id]; ok {
		links.Remove(c.Key)
		if links.Len() == 0 {
			delete(r.links, id)
		}
	}
}

// ApplyConstraints evaluates every constraint linked to owner against
// every node linked through it, owner included, and records the result
// with stamp on each group entry of the evaluated node. A device can
// therefore be blocked in every group at once but never partially.
//
// A node already evaluated under stamp keeps its result. Otherwise it is
// blocked when any of the owner's constraints blocks it; the remaining
// predicates are not called once one has. Entries of owner are stamped
// even when it has no constraint, so a routing pass evaluates each entry
// at most once.
func (r *Router) ApplyConstraints(owner *node.Node, stamp uint64) {
	links, ok := r.links[owner.ID]
	if !ok {
		r.markEntries(owner.ID, false, stamp)
		return
	}

	blocked := make(map[node.ID]bool)
	var order []node.ID
	for _, c := range links.All() {
		if !c.nodes.Contains(owner.ID) {
			panic(fmt.Sprintf("routing: %s linked to constraint %q that does not list it", owner, c.Key))
		}
		for _, cand := range c.nodes.All() {
			if r.evaluated(cand.ID, stamp) {
				continue
			}
			b, seen := blocked[cand.ID]
			if !seen {
				order = append(order, cand.ID)
			}
			if !b {
				blocked[cand.ID] = c.fn(cand, owner)
			}
		}
	}
	for _, id := range order {
		r.markEntries(id, blocked[id], stamp)
	}
}

// evaluated reports whether the entries of id already carry stamp.
func (r *Router) evaluated(id node.ID, stamp uint64) bool {
	entries, ok := r.entries[id]
	if !ok {
		return false
	}
	for _, e := range entries.All() {
		if e.Stamp >= stamp {
			return true
		}
	}
	return false
}

func (r *Router) markEntries(id node.ID, blocked bool, stamp uint64) {
	entries, ok := r.entries[id]
	if !ok {
		return
	}
	for _, e := range entries.All() {
		e.Blocked = blocked
		e.Stamp = stamp
	}
}

// BlockOtherPorts is the port constraint of a device with several ports:
// while owner is considered, every port node of the device other than
// owner's own is blocked. The highest ranked available port wins and the
// switcher activates it.
func BlockOtherPorts(candidate, owner *node.Node) bool {
	return candidate.Port != owner.Port
}

func samePredicate(a, b ConstraintFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
