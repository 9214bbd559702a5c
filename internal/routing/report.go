package routing

import (
	"cmp"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// PassKind tells a full routing pass from a prerouting preview.
type PassKind string

const (
	PassFull     PassKind = "full"
	PassPreroute PassKind = "preroute"
)

// Route is one realised edge. Source feeds Sink: a playback stream feeds
// a sink device, a source device feeds a capture stream.
type Route struct {
	Source    node.ID `json:"source"`
	Sink      node.ID `json:"sink"`
	SourceKey string  `json:"source_key"`
	SinkKey   string  `json:"sink_key"`

	// Class is the type of the routed node, Zone its zone.
	Class string `json:"class"`
	Zone  string `json:"zone"`

	Explicit     bool   `json:"explicit"`
	ConnectionID uint32 `json:"connection_id,omitempty"`

	// routed is the node the route was resolved for.
	routed node.ID
}

type routeKey struct {
	source, sink node.ID
	explicit     bool
}

func (rt Route) key() routeKey {
	return routeKey{source: rt.Source, sink: rt.Sink, explicit: rt.Explicit}
}

// Report summarises one pass.
type Report struct {
	Kind     PassKind      `json:"kind"`
	Stamp    uint64        `json:"stamp"`
	Duration time.Duration `json:"duration"`

	// Routed counts default routes realised in this pass.
	Routed int `json:"routed"`

	// Unroutable counts nodes for which no acceptable candidate exists.
	Unroutable int `json:"unroutable"`

	// Failed counts directives the switcher rejected.
	Failed int `json:"failed"`

	// Explicit counts explicit routes realised in this pass.
	Explicit int `json:"explicit"`

	Added   []Route `json:"added,omitempty"`
	Removed []Route `json:"removed,omitempty"`

	// Target is the device a prerouting preview selected, NoID when none.
	Target node.ID `json:"target,omitempty"`
}

// Changed reports whether the pass added or removed any route.
func (rep *Report) Changed() bool {
	return len(rep.Added) > 0 || len(rep.Removed) > 0
}

func sortRoutes(routes []Route) {
	slices.SortFunc(routes, func(a, b Route) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Sink, b.Sink); c != 0 {
			return c
		}
		switch {
		case a.Explicit == b.Explicit:
			return 0
		case a.Explicit:
			return 1
		default:
			return -1
		}
	})
}
