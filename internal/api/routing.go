package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-audio/internal/audit"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// connectRequest is the body of POST /connections.
type connectRequest struct {
	ID   uint32  `json:"id"`
	From node.ID `json:"from"`
	To   node.ID `json:"to"`
}

// handleListGroups returns the routing groups, the class map and the
// priority list.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	var (
		groups   []routing.GroupInfo
		classes  map[string]map[string]map[string]string
		priority []node.ID
	)
	err := s.onLoop(r, func() {
		groups = s.router.GroupSnapshot()
		classes = s.router.ClassMap()
		priority = s.router.PriorityList()
	})
	if err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	if groups == nil {
		groups = []routing.GroupInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"groups":        groups,
		"class_map":     classes,
		"priority_list": priority,
	})
}

// handleListRoutes returns the routes realised by the last pass.
func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	var (
		routes []routing.Route
		stamp  uint64
	)
	err := s.onLoop(r, func() {
		routes = s.router.Routes()
		stamp = s.router.Stamp()
	})
	if err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	if routes == nil {
		routes = []routing.Route{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"routes": routes,
		"count":  len(routes),
		"stamp":  stamp,
	})
}

// handleListConnections returns the explicit routes.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	var conns []routing.Connection
	if err := s.onLoop(r, func() { conns = s.router.Connections() }); err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connections": conns,
		"count":       len(conns),
	})
}

// handleTriggerRouting schedules a full routing pass.
func (s *Server) handleTriggerRouting(w http.ResponseWriter, r *http.Request) {
	if err := s.onLoop(r, s.engine.RequestRouting); err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	subject := subjectOf(r)
	s.logger.Info("routing pass requested", "subject", subject)
	s.auditLog(audit.ActionTriggerRouting, audit.EntityRouting, "", subject, nil)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// handleCreateConnection adds an explicit route.
func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == 0 {
		writeBadRequest(w, "connection id is required")
		return
	}
	if req.From == node.NoID || req.To == node.NoID {
		writeBadRequest(w, "from and to are required")
		return
	}

	var connErr error
	if err := s.onLoop(r, func() { connErr = s.engine.Connect(req.ID, req.From, req.To) }); err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	if connErr != nil {
		writeConnectionError(w, connErr)
		return
	}
	subject := subjectOf(r)
	s.logger.Info("connection created", "connection", req.ID, "subject", subject)
	s.auditLog(audit.ActionConnect, audit.EntityConnection, strconv.FormatUint(uint64(req.ID), 10), subject,
		map[string]any{"from": req.From, "to": req.To})

	writeJSON(w, http.StatusCreated, routing.Connection{ID: req.ID, From: req.From, To: req.To})
}

// handleDeleteConnection removes an explicit route.
func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		writeBadRequest(w, "invalid connection ID")
		return
	}

	var connErr error
	if err := s.onLoop(r, func() { connErr = s.engine.Disconnect(uint32(id)) }); err != nil {
		writeUnavailable(w, "routing core busy")
		return
	}
	if connErr != nil {
		writeConnectionError(w, connErr)
		return
	}
	subject := subjectOf(r)
	s.logger.Info("connection deleted", "connection", id, "subject", subject)
	s.auditLog(audit.ActionDisconnect, audit.EntityConnection, strconv.FormatUint(id, 10), subject, nil)

	w.WriteHeader(http.StatusNoContent)
}

// writeConnectionError maps router errors to HTTP statuses.
func writeConnectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrConnectionExists):
		writeConflict(w, err.Error())
	case errors.Is(err, routing.ErrConnectionNotFound), errors.Is(err, node.ErrNodeNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, routing.ErrInvalidRoute):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "connection update failed")
	}
}
