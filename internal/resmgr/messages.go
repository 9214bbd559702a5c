package resmgr

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// Request operations.
const (
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
)

// Status is the result code of a request.
type Status int

const (
	StatusOK Status = iota
	StatusUnknown
	StatusNotPossible
	StatusNonExistent
	StatusAlreadyExists
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnknown:
		return "unknown"
	case StatusNotPossible:
		return "not_possible"
	case StatusNonExistent:
		return "non_existent"
	case StatusAlreadyExists:
		return "already_exists"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Request is a connect or disconnect request from the resource manager.
// Source and sink are node IDs.
type Request struct {
	Op           string `json:"op"`
	Handle       uint32 `json:"handle"`
	ConnectionID uint32 `json:"connection_id"`
	SourceID     uint32 `json:"source_id,omitempty"`
	SinkID       uint32 `json:"sink_id,omitempty"`
	Format       string `json:"format,omitempty"`
}

// Ack answers one request.
type Ack struct {
	// ID identifies the acknowledgement in logs on both sides.
	ID           string `json:"id"`
	Handle       uint32 `json:"handle"`
	ConnectionID uint32 `json:"connection_id"`
	Status       Status `json:"status"`
	Error        string `json:"error,omitempty"`
}

// RouteBatch is the set of default routes one pass added and removed.
type RouteBatch struct {
	Stamp   uint64          `json:"stamp"`
	Kind    string          `json:"kind"`
	Added   []routing.Route `json:"added"`
	Removed []routing.Route `json:"removed"`
}

// DecodeRequest parses and checks a request payload.
func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.Handle == 0 {
		return Request{}, fmt.Errorf("%w: missing handle", ErrInvalidRequest)
	}
	return req, nil
}
