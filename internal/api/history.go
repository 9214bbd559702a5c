package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-audio/internal/history"
)

// handleListHistory returns recorded route changes, newest first.
//
// Query parameters:
//   - kind: default_added, default_removed, explicit_connected or explicit_disconnected
//   - key: node key matched against either end of the route
//   - class, zone: exact matches
//   - limit (default 50, max 200), offset
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "route history not available")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{
		Key:   q.Get("key"),
		Class: q.Get("class"),
		Zone:  q.Get("zone"),
	}
	if v := q.Get("kind"); v != "" {
		filter.Kind = history.Kind(v)
		if !filter.Kind.IsValid() {
			writeBadRequest(w, "invalid kind: "+v)
			return
		}
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list route history", "error", err)
		writeInternalError(w, "failed to list route history")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListPasses returns the most recent routing passes.
func (s *Server) handleListPasses(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "route history not available")
		return
	}

	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}

	passes, err := s.history.ListPasses(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list routing passes", "error", err)
		writeInternalError(w, "failed to list routing passes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"passes": passes,
		"count":  len(passes),
	})
}

// intParam parses an optional non-negative integer query parameter,
// writing a 400 response when it is malformed.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeBadRequest(w, "invalid "+name+": "+raw)
		return 0, false
	}
	return v, true
}
