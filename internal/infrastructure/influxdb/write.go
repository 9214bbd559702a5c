package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRoutingPass = "routing_pass"
	MeasurementRouteChange = "route_change"
)

// PassSample summarises one routing pass.
type PassSample struct {
	// Kind is "full" or "preroute".
	Kind       string
	Stamp      uint64
	Routed     int
	Unroutable int
	Explicit   int
	Duration   time.Duration
}

// RouteChangeSample describes one edge added to or removed from the
// default-route set, or one explicit connection change.
type RouteChangeSample struct {
	// Action is "added" or "removed".
	Action   string
	Source   string
	Sink     string
	Class    string
	Zone     string
	Explicit bool
}

// WriteRoutingPass records a routing pass.
//
// Example:
//
//	client.WriteRoutingPass(influxdb.PassSample{Kind: "full", Stamp: 12, Routed: 4, Duration: 180 * time.Microsecond})
func (c *Client) WriteRoutingPass(s PassSample) {
	if !c.IsConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(
		MeasurementRoutingPass,
		map[string]string{"kind": s.Kind},
		map[string]any{
			"stamp":       int64(s.Stamp), //nolint:gosec // stamps stay far below MaxInt64
			"routed":      s.Routed,
			"unroutable":  s.Unroutable,
			"explicit":    s.Explicit,
			"duration_us": s.Duration.Microseconds(),
		},
		time.Now(),
	))
}

// WriteRouteChange records one route edge change. Source and sink keys are
// tags: a home has tens of endpoints, not thousands.
func (c *Client) WriteRouteChange(s RouteChangeSample) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"action":   s.Action,
		"source":   s.Source,
		"sink":     s.Sink,
		"explicit": strconv.FormatBool(s.Explicit),
	}
	if s.Class != "" {
		tags["class"] = s.Class
	}
	if s.Zone != "" {
		tags["zone"] = s.Zone
	}

	c.writer.WritePoint(write.NewPoint(MeasurementRouteChange, tags, map[string]any{"count": 1}, time.Now()))
}
