package routing

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/idlist"
	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// AcceptFunc decides whether a device node joins a group.
type AcceptFunc func(g *Group, n *node.Node) bool

// CompareFunc ranks two members of a group. A negative result means a is
// preferred over b, zero means they rank equal.
type CompareFunc func(g *Group, a, b *node.Node) int

// Entry joins one device node into one group.
type Entry struct {
	Group *Group
	Node  *node.Node

	// Blocked is set by the constraint engine.
	Blocked bool

	// Stamp is the routing pass that last evaluated the constraints of Node.
	Stamp uint64
}

// Group is a named, ranked list of candidate devices of one direction.
type Group struct {
	Name      string
	Direction node.Direction

	accept  AcceptFunc
	compare CompareFunc
	entries *idlist.List[node.ID, *Entry]
}

// Len returns the number of members.
func (g *Group) Len() int {
	return g.entries.Len()
}

// Entries returns the members, most preferred first.
func (g *Group) Entries() []*Entry {
	return g.entries.Values()
}

// Contains reports whether the node is a member.
func (g *Group) Contains(id node.ID) bool {
	return g.entries.Contains(id)
}

// insert adds n when the group accepts it. The entry goes in front of the
// first member that n is strictly preferred over, so equal ranks keep
// insertion order.
func (g *Group) insert(n *node.Node) (*Entry, bool) {
	if g.entries.Contains(n.ID) || !g.accept(g, n) {
		return nil, false
	}
	e := &Entry{Group: g, Node: n}
	g.entries.InsertBefore(n.ID, e, func(_ node.ID, cur *Entry) bool {
		return g.compare(g, n, cur.Node) < 0
	})
	return e, true
}

// EntryInfo is a copy of an entry for the API.
type EntryInfo struct {
	NodeID  node.ID `json:"node_id"`
	Key     string  `json:"key"`
	Blocked bool    `json:"blocked"`
	Stamp   uint64  `json:"stamp"`
}

// GroupInfo is a copy of a group for the API.
type GroupInfo struct {
	Name      string      `json:"name"`
	Direction string      `json:"direction"`
	Entries   []EntryInfo `json:"entries"`
}

// CreateGroup declares a routing group and registers every known device
// node of its direction with it.
//
// Parameters:
//   - dir: Device direction of the members
//   - name: Unique name within dir
//   - accept: Membership predicate
//   - compare: Ranking predicate
//
// Returns:
//   - *Group: The new group
//   - error: ErrInvalidGroup or ErrGroupExists
func (r *Router) CreateGroup(dir node.Direction, name string, accept AcceptFunc, compare CompareFunc) (*Group, error) {
	if name == "" || accept == nil || compare == nil {
		return nil, fmt.Errorf("%w: %q needs a name, accept and compare", ErrInvalidGroup, name)
	}
	if dir != node.Input && dir != node.Output {
		return nil, fmt.Errorf("%w: %q has direction %d", ErrInvalidGroup, name, dir)
	}
	if _, ok := r.groups[dir][name]; ok {
		return nil, fmt.Errorf("%w: %s %q", ErrGroupExists, dir, name)
	}

	g := &Group{
		Name:      name,
		Direction: dir,
		accept:    accept,
		compare:   compare,
		entries:   idlist.New[node.ID, *Entry](),
	}
	r.groups[dir][name] = g
	r.groupOrder[dir] = append(r.groupOrder[dir], g)

	for _, n := range r.registry.List() {
		if n.Implement == node.Device && n.Direction == dir {
			r.join(g, n)
		}
	}

	r.logger.Debug("routing group created", "group", name, "direction", dir.String(), "members", g.Len())
	return g, nil
}

// Group returns the named group, or nil.
func (r *Router) Group(dir node.Direction, name string) *Group {
	return r.groups[dir][name]
}

// Groups returns the groups of a direction in creation order.
func (r *Router) Groups(dir node.Direction) []*Group {
	out := make([]*Group, len(r.groupOrder[dir]))
	copy(out, r.groupOrder[dir])
	return out
}

// GroupSnapshot copies every group, input groups first.
func (r *Router) GroupSnapshot() []GroupInfo {
	var out []GroupInfo
	for _, dir := range []node.Direction{node.Input, node.Output} {
		for _, g := range r.groupOrder[dir] {
			info := GroupInfo{Name: g.Name, Direction: dir.String(), Entries: make([]EntryInfo, 0, g.Len())}
			for _, e := range g.entries.All() {
				info.Entries = append(info.Entries, EntryInfo{
					NodeID:  e.Node.ID,
					Key:     e.Node.Key,
					Blocked: e.Blocked,
					Stamp:   e.Stamp,
				})
			}
			out = append(out, info)
		}
	}
	return out
}

// RegisterNode adds a node to every group of its direction that accepts
// it, and routable nodes to the priority list. Registering an already
// registered node is a no-op.
func (r *Router) RegisterNode(n *node.Node) {
	if n.Implement == node.Device {
		for _, g := range r.groupOrder[n.Direction] {
			r.join(g, n)
		}
	}
	if n.Routable() {
		r.prilist.insert(n)
	}
}

// UnregisterNode removes a node from every group, every constraint and
// the priority list.
func (r *Router) UnregisterNode(n *node.Node) {
	r.leaveGroups(n)
	if links, ok := r.links[n.ID]; ok {
		for _, c := range links.Values() {
			c.nodes.Remove(n.ID)
		}
		delete(r.links, n.ID)
	}
	r.prilist.remove(n.ID)
}

func (r *Router) join(g *Group, n *node.Node) {
	e, ok := g.insert(n)
	if !ok {
		return
	}
	entries, ok := r.entries[n.ID]
	if !ok {
		entries = idlist.New[*Group, *Entry]()
		r.entries[n.ID] = entries
	}
	entries.PushBack(g, e)
}

func (r *Router) leaveGroups(n *node.Node) {
	entries, ok := r.entries[n.ID]
	if !ok {
		return
	}
	for g := range entries.All() {
		g.entries.Remove(n.ID)
	}
	delete(r.entries, n.ID)
}
