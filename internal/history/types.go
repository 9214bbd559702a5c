package history

import (
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// Kind is the change recorded by an Entry.
type Kind string

// Route change kinds.
const (
	KindDefaultAdded         Kind = "default_added"
	KindDefaultRemoved       Kind = "default_removed"
	KindExplicitConnected    Kind = "explicit_connected"
	KindExplicitDisconnected Kind = "explicit_disconnected"
)

// ValidKinds lists every Kind accepted by a Filter.
var ValidKinds = []Kind{
	KindDefaultAdded,
	KindDefaultRemoved,
	KindExplicitConnected,
	KindExplicitDisconnected,
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// kindOf maps a route change from a pass report to its Kind.
func kindOf(rt routing.Route, added bool) Kind {
	switch {
	case rt.Explicit && added:
		return KindExplicitConnected
	case rt.Explicit:
		return KindExplicitDisconnected
	case added:
		return KindDefaultAdded
	default:
		return KindDefaultRemoved
	}
}

// Entry is one recorded route change.
type Entry struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Stamp        uint64    `json:"stamp"`
	SourceID     node.ID   `json:"source_id"`
	SourceKey    string    `json:"source_key"`
	SinkID       node.ID   `json:"sink_id"`
	SinkKey      string    `json:"sink_key"`
	Class        string    `json:"class,omitempty"`
	Zone         string    `json:"zone,omitempty"`
	ConnectionID uint32    `json:"connection_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Pass is one recorded routing pass.
type Pass struct {
	ID         int64            `json:"id"`
	Stamp      uint64           `json:"stamp"`
	Kind       routing.PassKind `json:"kind"`
	Routed     int              `json:"routed"`
	Unroutable int              `json:"unroutable"`
	Explicit   int              `json:"explicit"`
	Duration   time.Duration    `json:"duration"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Kind   Kind   // optional: one change kind
	Key    string // optional: matches the source or the sink key
	Class  string // optional
	Zone   string // optional
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains one page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}
