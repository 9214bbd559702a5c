package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// nodeResponse is a node with its current route, if any.
type nodeResponse struct {
	node.Node
	Route *routing.Route `json:"route,omitempty"`
}

// handleListNodes returns every registered node.
//
// Query parameters:
//   - implement: device or stream
//   - direction: input or output
//   - zone: zone name
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var impl *node.Implement
	if v := q.Get("implement"); v != "" {
		parsed, err := node.ParseImplement(v)
		if err != nil {
			writeBadRequest(w, "invalid implement: "+v)
			return
		}
		impl = &parsed
	}
	var dir *node.Direction
	if v := q.Get("direction"); v != "" {
		parsed, err := node.ParseDirection(v)
		if err != nil {
			writeBadRequest(w, "invalid direction: "+v)
			return
		}
		dir = &parsed
	}
	zoneName := q.Get("zone")

	var nodes []node.Node
	if err := s.onLoop(r, func() { nodes = s.registry.Snapshot() }); err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}

	filtered := make([]node.Node, 0, len(nodes))
	for _, n := range nodes {
		if impl != nil && n.Implement != *impl {
			continue
		}
		if dir != nil && n.Direction != *dir {
			continue
		}
		if zoneName != "" && n.Zone != zoneName {
			continue
		}
		filtered = append(filtered, n)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": filtered,
		"count": len(filtered),
	})
}

// handleGetNode returns one node and its current route.
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeBadRequest(w, "invalid node ID")
		return
	}

	var resp *nodeResponse
	err = s.onLoop(r, func() {
		n := s.registry.FindByIndex(node.ID(id))
		if n == nil {
			return
		}
		resp = &nodeResponse{Node: *n}
		if rt, ok := s.router.RouteOf(n.ID); ok {
			resp.Route = &rt
		}
	})
	if err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	if resp == nil {
		writeNotFound(w, "node not found")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
