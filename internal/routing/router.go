package routing

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/idlist"
	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// Logger defines the logging interface used by the Router.
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

// Switcher carries out routing decisions on the host audio graph.
type Switcher interface {
	// SetupLink connects from to to. An error leaves both endpoints on
	// their previous connection.
	SetupLink(from, to *node.Node, explicit bool) error

	// TeardownLink removes an explicit connection from to to.
	TeardownLink(from, to *node.Node) error
}

// VolumeLimiter receives the class routed over every edge of a pass.
type VolumeLimiter interface {
	AddLimitingClass(device *node.Node, class string, stamp uint64)

	// Commit applies the classes collected for stamp.
	Commit(stamp uint64)
}

// Observer is told about every finished pass, on the routing goroutine.
type Observer interface {
	RoutingPass(rep *Report)
}

type state uint8

const (
	idle state = iota
	routing
)

// Router is the routing table and route resolver.
type Router struct {
	registry  *node.Registry
	switcher  Switcher
	volume    VolumeLimiter
	observers []Observer
	logger    Logger

	groups     [2]map[string]*Group
	groupOrder [2][]*Group
	classes    map[string]*classTable

	constraints map[string]*Constraint
	links       map[node.ID]*idlist.List[string, *Constraint]

	// entries holds the group entries of each device node.
	entries map[node.ID]*idlist.List[*Group, *Entry]

	prilist     *priorityList
	connections map[uint32]*Connection
	routes      map[routeKey]Route

	state state
	stamp uint64
}

// NewRouter creates a Router and hooks it into the registry. vol may be nil.
func NewRouter(registry *node.Registry, sw Switcher, vol VolumeLimiter) *Router {
	if vol == nil {
		vol = noopLimiter{}
	}
	r := &Router{
		registry:    registry,
		switcher:    sw,
		volume:      vol,
		logger:      noopLogger{},
		groups:      [2]map[string]*Group{make(map[string]*Group), make(map[string]*Group)},
		classes:     make(map[string]*classTable),
		constraints: make(map[string]*Constraint),
		links:       make(map[node.ID]*idlist.List[string, *Constraint]),
		entries:     make(map[node.ID]*idlist.List[*Group, *Entry]),
		prilist:     newPriorityList(),
		connections: make(map[uint32]*Connection),
		routes:      make(map[routeKey]Route),
	}
	registry.AddHook(r)
	return r
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// AddObserver registers an observer of routing passes.
func (r *Router) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Stamp returns the stamp of the most recent pass.
func (r *Router) Stamp() uint64 {
	return r.stamp
}

// Routing reports whether a pass is running.
func (r *Router) Routing() bool {
	return r.state == routing
}

// NodeCreated implements node.Hook.
func (r *Router) NodeCreated(n *node.Node) {
	r.RegisterNode(n)
}

// NodeUpdated implements node.Hook. Group membership and the priority
// list are rebuilt for n; its constraint links are kept. Rebuilt entries
// carry no stamp, so their constraints are evaluated again.
func (r *Router) NodeUpdated(n *node.Node) {
	r.leaveGroups(n)
	r.prilist.remove(n.ID)
	r.RegisterNode(n)
}

// NodeDestroyed implements node.Hook.
func (r *Router) NodeDestroyed(n *node.Node) {
	r.UnregisterNode(n)
}

// References implements node.Hook.
func (r *Router) References(id node.ID) []string {
	var refs []string
	for _, dir := range []node.Direction{node.Input, node.Output} {
		for _, g := range r.groupOrder[dir] {
			if g.Contains(id) {
				refs = append(refs, fmt.Sprintf("group %s/%s", dir, g.Name))
			}
		}
	}
	for key, c := range r.constraints {
		if c.nodes.Contains(id) {
			refs = append(refs, "constraint "+key)
		}
	}
	if _, ok := r.entries[id]; ok {
		refs = append(refs, "entry index")
	}
	if _, ok := r.links[id]; ok {
		refs = append(refs, "constraint links")
	}
	if r.prilist.contains(id) {
		refs = append(refs, "priority list")
	}
	return refs
}

type noopLimiter struct{}

func (noopLimiter) AddLimitingClass(*node.Node, string, uint64) {}
func (noopLimiter) Commit(uint64)                               {}
