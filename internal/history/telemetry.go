package history

import (
	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// MetricsWriter is the part of influxdb.Client the Telemetry observer
// writes through.
type MetricsWriter interface {
	WriteRoutingPass(s influxdb.PassSample)
	WriteRouteChange(s influxdb.RouteChangeSample)
}

// Telemetry is a routing.Observer writing every pass, and every route
// change of a full pass, as time-series points. The influx client batches
// writes itself, so points are handed over on the routing goroutine.
type Telemetry struct {
	w MetricsWriter
}

// NewTelemetry creates a Telemetry observer writing to w.
func NewTelemetry(w MetricsWriter) *Telemetry {
	return &Telemetry{w: w}
}

// RoutingPass implements routing.Observer.
func (t *Telemetry) RoutingPass(rep *routing.Report) {
	t.w.WriteRoutingPass(influxdb.PassSample{
		Kind:       string(rep.Kind),
		Stamp:      rep.Stamp,
		Routed:     rep.Routed,
		Unroutable: rep.Unroutable,
		Explicit:   rep.Explicit,
		Duration:   rep.Duration,
	})
	if rep.Kind != routing.PassFull {
		return
	}
	for _, rt := range rep.Removed {
		t.w.WriteRouteChange(changeSample("removed", rt))
	}
	for _, rt := range rep.Added {
		t.w.WriteRouteChange(changeSample("added", rt))
	}
}

func changeSample(action string, rt routing.Route) influxdb.RouteChangeSample {
	return influxdb.RouteChangeSample{
		Action:   action,
		Source:   rt.SourceKey,
		Sink:     rt.SinkKey,
		Class:    rt.Class,
		Zone:     rt.Zone,
		Explicit: rt.Explicit,
	}
}
