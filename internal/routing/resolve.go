package routing

import (
	"cmp"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// edge is a route realised in the current pass together with the device
// whose volume it limits.
type edge struct {
	route  Route
	device *node.Node
}

// MakeRouting recomputes every route.
//
// A call while a pass is running is dropped; the caller that triggered
// the running pass already sees the latest topology once it finishes.
// The pass never fails as a whole: a node without an acceptable
// candidate, or whose switch directive fails, stays disconnected until
// the next pass.
//
// Returns:
//   - *Report: Pass summary, or nil when the call was dropped
func (r *Router) MakeRouting() *Report {
	if r.state == routing {
		r.logger.Debug("routing pass already running, request dropped")
		return nil
	}
	r.state = routing
	defer func() { r.state = idle }()

	start := time.Now()
	stamp := r.nextStamp()
	rep := &Report{Kind: PassFull, Stamp: stamp}

	edges := r.makeExplicitRoutes(stamp, rep)

	for _, id := range r.prilist.keys() {
		n := r.registry.FindByIndex(id)
		if n == nil || n.Stamp >= stamp || !ready(n) {
			continue
		}
		if e, ok := r.routeDefault(n, stamp, rep); ok {
			edges = append(edges, e)
		}
	}

	for _, e := range edges {
		r.volume.AddLimitingClass(e.device, e.route.Class, stamp)
	}
	r.volume.Commit(stamp)

	r.diff(edges, nil, rep)
	rep.Duration = time.Since(start)

	r.logger.Debug("routing pass complete", "stamp", stamp, "routed", rep.Routed,
		"explicit", rep.Explicit, "unroutable", rep.Unroutable, "failed", rep.Failed,
		"added", len(rep.Added), "removed", len(rep.Removed))
	r.notify(rep)
	return rep
}

// MakePrerouting previews the device n would be routed to, typically for
// a stream the host is still setting up.
//
// Explicit routes are realised and every stale node of equal or lower
// priority met on the way is routed again, so the preview never leaves
// lower priority state behind a full pass. n itself is neither switched
// nor stamped.
//
// Returns:
//   - *node.Node: The selected device, or nil when none is acceptable or
//     a pass is already running
func (r *Router) MakePrerouting(n *node.Node) *node.Node {
	if r.state == routing {
		r.logger.Debug("prerouting skipped, routing pass running", "node", n.Key)
		return nil
	}
	r.state = routing
	defer func() { r.state = idle }()

	start := time.Now()
	stamp := r.nextStamp()
	rep := &Report{Kind: PassPreroute, Stamp: stamp}

	edges := r.makeExplicitRoutes(stamp, rep)

	for _, id := range r.prilist.keys() {
		m := r.registry.FindByIndex(id)
		if m == nil || m.ID == n.ID {
			continue
		}
		if m.Priority > n.Priority {
			break
		}
		if m.Stamp >= stamp || !ready(m) {
			continue
		}
		if e, ok := r.routeDefault(m, stamp, rep); ok {
			edges = append(edges, e)
		}
	}

	var target *node.Node
	if e := r.findDefaultRoute(n, stamp); e != nil {
		target = e.Node
		rep.Target = target.ID
	}

	touched := make(map[node.ID]bool, len(edges))
	for _, e := range edges {
		touched[e.route.routed] = true
	}
	r.diff(edges, touched, rep)
	rep.Duration = time.Since(start)

	r.logger.Debug("prerouting complete", "node", n.Key, "target", target, "rerouted", rep.Routed)
	r.notify(rep)
	return target
}

// makeExplicitRoutes realises every unblocked explicit route whose
// endpoints exist and stamps the routed node.
func (r *Router) makeExplicitRoutes(stamp uint64, rep *Report) []edge {
	ids := make([]uint32, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var edges []edge
	for _, id := range ids {
		conn := r.connections[id]
		if conn.Blocked {
			continue
		}
		from := r.registry.FindByIndex(conn.From)
		to := r.registry.FindByIndex(conn.To)
		if from == nil || to == nil {
			r.logger.Debug("explicit route skipped, endpoint missing", "connection", id)
			continue
		}
		if err := r.switcher.SetupLink(from, to, true); err != nil {
			rep.Failed++
			r.logger.Warn("explicit route failed", "connection", id, "from", from.Key, "to", to.Key, "error", err)
			continue
		}

		routed := routedEnd(from, to)
		routed.Stamp = stamp
		rep.Explicit++

		rt := newRoute(from, to, routed, true)
		rt.ConnectionID = id
		edges = append(edges, edge{route: rt, device: deviceEnd(from, to, routed)})
	}
	return edges
}

// routeDefault resolves and switches the default route of n.
func (r *Router) routeDefault(n *node.Node, stamp uint64, rep *Report) (edge, bool) {
	e := r.findDefaultRoute(n, stamp)
	if e == nil {
		rep.Unroutable++
		r.logger.Debug("no route", "node", n.Key, "zone", n.Zone, "class", n.Type)
		return edge{}, false
	}

	from, to := orient(n, e.Node)
	if err := r.switcher.SetupLink(from, to, false); err != nil {
		rep.Failed++
		r.logger.Warn("default route failed", "from", from.Key, "to", to.Key, "error", err)
		return edge{}, false
	}

	n.Stamp = stamp
	rep.Routed++
	return edge{route: newRoute(from, to, n, false), device: e.Node}, true
}

// findDefaultRoute walks the group of n in rank order and returns the
// first entry that is available, not ignored, present (or Bluetooth,
// whose profile the switcher can activate) and not blocked. Constraints
// of an entry are evaluated the first time it is visited in a pass.
func (r *Router) findDefaultRoute(n *node.Node, stamp uint64) *Entry {
	g := r.GroupFor(n.Zone, n.Direction.Opposite(), n.Type)
	if g == nil {
		return nil
	}
	for _, e := range g.entries.All() {
		cand := e.Node
		if !cand.Available || cand.Ignore {
			continue
		}
		if !cand.Materialized() && !cand.IsBluetooth() {
			continue
		}
		if e.Stamp < stamp {
			r.ApplyConstraints(cand, stamp)
		}
		if e.Blocked {
			continue
		}
		return e
	}
	return nil
}

// diff compares the edges of this pass with the current route set and
// records the changes. With touched set, only routes resolved for the
// touched nodes are compared.
func (r *Router) diff(edges []edge, touched map[node.ID]bool, rep *Report) {
	next := make(map[routeKey]Route, len(edges))
	for _, e := range edges {
		next[e.route.key()] = e.route
	}

	for k, old := range r.routes {
		if touched != nil && !touched[old.routed] {
			continue
		}
		if _, ok := next[k]; !ok {
			rep.Removed = append(rep.Removed, old)
			delete(r.routes, k)
		}
	}
	for k, rt := range next {
		if _, ok := r.routes[k]; !ok {
			rep.Added = append(rep.Added, rt)
		}
		r.routes[k] = rt
	}
	sortRoutes(rep.Added)
	sortRoutes(rep.Removed)
}

// Routes returns the route set of the last pass, ordered by source and sink.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	sortRoutes(out)
	return out
}

// RouteOf returns the device the node is routed to in the last pass.
func (r *Router) RouteOf(id node.ID) (Route, bool) {
	var found []Route
	for _, rt := range r.routes {
		if rt.routed == id {
			found = append(found, rt)
		}
	}
	if len(found) == 0 {
		return Route{}, false
	}
	// Explicit routes sort last and win.
	slices.SortFunc(found, func(a, b Route) int {
		if a.Explicit != b.Explicit {
			if a.Explicit {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Sink, b.Sink)
	})
	return found[len(found)-1], true
}

func (r *Router) nextStamp() uint64 {
	r.stamp++
	return r.stamp
}

func (r *Router) notify(rep *Report) {
	for _, o := range r.observers {
		o.RoutingPass(rep)
	}
}

// ready reports whether a routable node can be routed now: a stream the
// host has created, or a bridged device whose loopback exists.
func ready(n *node.Node) bool {
	if n.Ignore || !n.Materialized() {
		return false
	}
	if n.Implement == node.Device {
		return n.Bridged && n.Loop != node.InvalidIndex
	}
	return true
}

func newRoute(from, to, routed *node.Node, explicit bool) Route {
	return Route{
		Source:    from.ID,
		Sink:      to.ID,
		SourceKey: from.Key,
		SinkKey:   to.Key,
		Class:     routed.Type,
		Zone:      routed.Zone,
		Explicit:  explicit,
		routed:    routed.ID,
	}
}

func deviceEnd(from, to, routed *node.Node) *node.Node {
	if routed == from {
		return to
	}
	return from
}
