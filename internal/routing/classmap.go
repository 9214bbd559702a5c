package routing

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// classTable maps class to group for one zone, one map per device direction.
type classTable [2]map[string]*Group

// AssignClass maps (zone, dir, class) to the named group of direction
// dir. The zone's table is allocated on its first assignment. A later
// assignment for the same key replaces the earlier one.
func (r *Router) AssignClass(zoneName string, dir node.Direction, class, groupName string) error {
	if class == "" {
		return fmt.Errorf("%w: empty class for group %q", ErrInvalidGroup, groupName)
	}
	g := r.Group(dir, groupName)
	if g == nil {
		return fmt.Errorf("%w: %s %q", ErrGroupNotFound, dir, groupName)
	}

	t, ok := r.classes[zoneName]
	if !ok {
		t = &classTable{make(map[string]*Group), make(map[string]*Group)}
		r.classes[zoneName] = t
	}
	t[dir][class] = g
	return nil
}

// GroupFor returns the group that (zone, dir, class) maps to, or nil.
// dir is the direction of the devices in the group.
func (r *Router) GroupFor(zoneName string, dir node.Direction, class string) *Group {
	t, ok := r.classes[zoneName]
	if !ok || dir > node.Output {
		return nil
	}
	return t[dir][class]
}

// ClassMap returns zone -> direction -> class -> group name, for the API.
func (r *Router) ClassMap() map[string]map[string]map[string]string {
	out := make(map[string]map[string]map[string]string, len(r.classes))
	for zoneName, t := range r.classes {
		byDir := make(map[string]map[string]string, 2)
		for _, dir := range []node.Direction{node.Input, node.Output} {
			if len(t[dir]) == 0 {
				continue
			}
			classes := make(map[string]string, len(t[dir]))
			for class, g := range t[dir] {
				classes[class] = g.Name
			}
			byDir[dir.String()] = classes
		}
		out[zoneName] = byDir
	}
	return out
}
