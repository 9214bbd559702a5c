package node

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Hook is notified synchronously of node lifecycle changes. The routing
// table implements it to keep group entries, constraint links and the
// priority list in step with the registry.
type Hook interface {
	// NodeCreated is called after the node has its ID.
	NodeCreated(n *Node)

	// NodeUpdated is called after an Update mutated the node.
	NodeUpdated(n *Node)

	// NodeDestroyed is called before the node leaves the registry. The
	// hook must drop every reference to it.
	NodeDestroyed(n *Node)

	// References describes every structure that still refers to id.
	References(id ID) []string
}

// Registry is the canonical store of routing endpoints.
//
// Nodes are addressed by stable IDs that are never reused. The registry is
// confined to the main loop goroutine and does no locking; other
// goroutines read it through mainloop.Loop.Call.
type Registry struct {
	nodes  map[ID]*Node
	byKey  map[string]ID
	nextID ID
	hooks  []Hook
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:  make(map[ID]*Node),
		byKey:  make(map[string]ID),
		nextID: 1,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddHook registers a lifecycle hook. Hooks run in registration order.
func (r *Registry) AddHook(h Hook) {
	r.hooks = append(r.hooks, h)
}

// Create validates n, assigns it the next ID and announces it to every
// hook. The registry keeps the pointer; callers must not retain a copy.
//
// Returns:
//   - *Node: n, with ID set
//   - error: ErrInvalidNode or ErrNodeExists
func (r *Registry) Create(n *Node) (*Node, error) {
	if err := validate(n); err != nil {
		return nil, err
	}
	if _, taken := r.byKey[n.Key]; taken {
		return nil, fmt.Errorf("%w: key %q", ErrNodeExists, n.Key)
	}

	n.ID = r.nextID
	r.nextID++
	r.nodes[n.ID] = n
	r.byKey[n.Key] = n.ID

	for _, h := range r.hooks {
		h.NodeCreated(n)
	}

	r.logger.Debug("node created", "id", n.ID, "key", n.Key,
		"direction", n.Direction.String(), "implement", n.Implement.String(), "type", n.Type)
	return n, nil
}

// Destroy removes a node. Every hook drops its references first; a hook
// that still refers to the node afterwards is a programming error and
// panics.
func (r *Registry) Destroy(id ID) error {
	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}

	for _, h := range r.hooks {
		h.NodeDestroyed(n)
	}
	for _, h := range r.hooks {
		if refs := h.References(id); len(refs) > 0 {
			panic(fmt.Sprintf("node: %s destroyed while still referenced by %s", n, strings.Join(refs, ", ")))
		}
	}

	delete(r.nodes, id)
	delete(r.byKey, n.Key)

	r.logger.Debug("node destroyed", "id", id, "key", n.Key)
	return nil
}

// Update applies fn to the node and tells every hook, so group membership
// follows changes of availability, type or zone. fn must not change the
// key or the ID.
//
// fn works on a copy. The node is only changed when the result validates,
// so a rejected update leaves it as it was and no hook runs.
func (r *Registry) Update(id ID, fn func(n *Node)) error {
	n, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}

	next := *n
	fn(&next)
	if next.ID != id || next.Key != n.Key {
		panic(fmt.Sprintf("node: update of #%d changed its identity to #%d %q", id, next.ID, next.Key))
	}
	if err := validate(&next); err != nil {
		return err
	}
	*n = next

	for _, h := range r.hooks {
		h.NodeUpdated(n)
	}
	return nil
}

// FindByIndex returns the node with the given ID, or nil.
func (r *Registry) FindByIndex(id ID) *Node {
	return r.nodes[id]
}

// FindByKey returns the node with the given key, or nil.
func (r *Registry) FindByKey(key string) *Node {
	id, ok := r.byKey[key]
	if !ok {
		return nil
	}
	return r.nodes[id]
}

// FindByPhysical returns every node backed by the given host object,
// ordered by ID. A device with several ports has one node per port, all
// sharing the host index.
func (r *Registry) FindByPhysical(dir Direction, impl Implement, index uint32) []*Node {
	if index == InvalidIndex {
		return nil
	}
	var out []*Node
	for _, n := range r.nodes {
		if n.Direction == dir && n.Implement == impl && n.PhysicalIndex == index {
			out = append(out, n)
		}
	}
	sortByID(out)
	return out
}

// FindByName returns every device node of the given direction and host
// device name, ordered by ID.
func (r *Registry) FindByName(dir Direction, name string) []*Node {
	var out []*Node
	for _, n := range r.nodes {
		if n.Implement == Device && n.Direction == dir && n.Name == name {
			out = append(out, n)
		}
	}
	sortByID(out)
	return out
}

// List returns all nodes ordered by ID.
func (r *Registry) List() []*Node {
	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	sortByID(out)
	return out
}

// Snapshot returns copies of all nodes ordered by ID, safe to hand to
// other goroutines.
func (r *Registry) Snapshot() []Node {
	list := r.List()
	out := make([]Node, len(list))
	for i, n := range list {
		out[i] = *n
	}
	return out
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	return len(r.nodes)
}

func sortByID(nodes []*Node) {
	slices.SortFunc(nodes, func(a, b *Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

func validate(n *Node) error {
	switch {
	case n == nil:
		return fmt.Errorf("%w: nil", ErrInvalidNode)
	case n.Key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidNode)
	case n.Direction != Input && n.Direction != Output:
		return fmt.Errorf("%w: %q has direction %d", ErrInvalidNode, n.Key, n.Direction)
	case n.Implement != Device && n.Implement != Stream:
		return fmt.Errorf("%w: %q has implement %d", ErrInvalidNode, n.Key, n.Implement)
	case n.Channels < 0:
		return fmt.Errorf("%w: %q has %d channels", ErrInvalidNode, n.Key, n.Channels)
	case n.Bridged && (n.Implement != Device || n.Direction != Input):
		return fmt.Errorf("%w: %q: only input devices can be bridged", ErrInvalidNode, n.Key)
	}
	return nil
}

// New returns a node with every host index set to InvalidIndex, ready to
// be filled in and passed to Create.
func New(key string, dir Direction, impl Implement) *Node {
	return &Node{
		Key:           key,
		Direction:     dir,
		Implement:     impl,
		Visible:       true,
		Available:     true,
		PhysicalIndex: InvalidIndex,
		Card:          Card{Index: InvalidIndex},
		Mux:           InvalidIndex,
		Loop:          InvalidIndex,
	}
}
