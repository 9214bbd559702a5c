package routing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// Connection is an explicit route requested by the resource manager.
type Connection struct {
	ID      uint32  `json:"id"`
	From    node.ID `json:"from"`
	To      node.ID `json:"to"`
	Blocked bool    `json:"blocked"`
}

// AddExplicitRoute records a connection from one node to another and
// runs a routing pass.
//
// Parameters:
//   - connID: Connection id chosen by the resource manager
//   - from: Source endpoint (playback stream, or input device)
//   - to: Sink endpoint (output device, or capture stream)
//
// Returns:
//   - error: ErrConnectionExists, node.ErrNodeNotFound or ErrInvalidRoute
func (r *Router) AddExplicitRoute(connID uint32, from, to node.ID) error {
	if _, ok := r.connections[connID]; ok {
		return fmt.Errorf("%w: %d", ErrConnectionExists, connID)
	}
	src := r.registry.FindByIndex(from)
	dst := r.registry.FindByIndex(to)
	if src == nil || dst == nil {
		return fmt.Errorf("%w: connection %d references %d -> %d", node.ErrNodeNotFound, connID, from, to)
	}
	if err := checkLink(src, dst); err != nil {
		return err
	}

	r.connections[connID] = &Connection{ID: connID, From: from, To: to}
	r.logger.Info("explicit route added", "connection", connID, "from", src.Key, "to", dst.Key)

	r.MakeRouting()
	return nil
}

// RemoveExplicitRoute tears down a connection and runs a routing pass, so
// the released node falls back to its default route.
func (r *Router) RemoveExplicitRoute(connID uint32) error {
	conn, ok := r.connections[connID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrConnectionNotFound, connID)
	}
	delete(r.connections, connID)

	src := r.registry.FindByIndex(conn.From)
	dst := r.registry.FindByIndex(conn.To)
	if src != nil && dst != nil && !conn.Blocked {
		if err := r.switcher.TeardownLink(src, dst); err != nil {
			r.logger.Warn("explicit route teardown failed", "connection", connID, "error", err)
		}
	}
	r.logger.Info("explicit route removed", "connection", connID)

	r.MakeRouting()
	return nil
}

// SetExplicitRouteBlocked suspends or resumes a connection without
// forgetting it, then runs a routing pass.
func (r *Router) SetExplicitRouteBlocked(connID uint32, blocked bool) error {
	conn, ok := r.connections[connID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrConnectionNotFound, connID)
	}
	if conn.Blocked == blocked {
		return nil
	}
	conn.Blocked = blocked

	if blocked {
		src := r.registry.FindByIndex(conn.From)
		dst := r.registry.FindByIndex(conn.To)
		if src != nil && dst != nil {
			if err := r.switcher.TeardownLink(src, dst); err != nil {
				r.logger.Warn("explicit route teardown failed", "connection", connID, "error", err)
			}
		}
	}

	r.MakeRouting()
	return nil
}

// Connections returns copies of the explicit routes ordered by id.
func (r *Router) Connections() []Connection {
	out := make([]Connection, 0, len(r.connections))
	for _, c := range r.connections {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Connection) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// checkLink accepts playback (stream to output device), capture (input
// device to stream) and bridged input device to output device.
func checkLink(from, to *node.Node) error {
	switch {
	case from.Implement == node.Stream && from.Direction == node.Input &&
		to.Implement == node.Device && to.Direction == node.Output:
		return nil
	case from.Implement == node.Device && from.Direction == node.Input &&
		to.Implement == node.Stream && to.Direction == node.Output:
		return nil
	case from.Implement == node.Device && from.Direction == node.Input && from.Bridged &&
		to.Implement == node.Device && to.Direction == node.Output:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidRoute, from, to)
}

// routedEnd returns the node a link is resolved for: the stream, or the
// bridged source device.
func routedEnd(from, to *node.Node) *node.Node {
	if to.Implement == node.Stream {
		return to
	}
	return from
}

// orient returns (source, sink) for routing n to target.
func orient(n, target *node.Node) (from, to *node.Node) {
	if n.Implement == node.Stream && n.Direction == node.Output {
		return target, n
	}
	return n, target
}
