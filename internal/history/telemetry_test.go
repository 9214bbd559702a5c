package history

import (
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

type fakeMetrics struct {
	passes  []influxdb.PassSample
	changes []influxdb.RouteChangeSample
}

func (f *fakeMetrics) WriteRoutingPass(s influxdb.PassSample) { f.passes = append(f.passes, s) }

func (f *fakeMetrics) WriteRouteChange(s influxdb.RouteChangeSample) {
	f.changes = append(f.changes, s)
}

func TestTelemetry(t *testing.T) {
	m := &fakeMetrics{}
	tel := NewTelemetry(m)

	tel.RoutingPass(&routing.Report{Kind: routing.PassPreroute, Stamp: 1, Added: []routing.Route{speakerRoute()}})
	tel.RoutingPass(&routing.Report{
		Kind:    routing.PassFull,
		Stamp:   2,
		Routed:  1,
		Added:   []routing.Route{phoneRoute()},
		Removed: []routing.Route{speakerRoute()},
	})

	if len(m.passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(m.passes))
	}
	if m.passes[0].Kind != "preroute" || m.passes[1].Kind != "full" || m.passes[1].Routed != 1 {
		t.Errorf("passes = %+v", m.passes)
	}

	if len(m.changes) != 2 {
		t.Fatalf("changes = %d, want 2", len(m.changes))
	}
	removed, added := m.changes[0], m.changes[1]
	if removed.Action != "removed" || removed.Source != "player.music" || removed.Explicit {
		t.Errorf("removed = %+v", removed)
	}
	if added.Action != "added" || added.Sink != "bluez_output.00_11" || !added.Explicit || added.Class != "phone" {
		t.Errorf("added = %+v", added)
	}
}
