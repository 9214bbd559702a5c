// Package influxdb provides InfluxDB connectivity for routing telemetry.
//
// It wraps the official influxdb-client-go v2 library. Every routing pass
// writes a routing_pass point (duration, routed, unroutable, explicit) and
// every default or explicit edge change writes a route_change point, so
// dashboards can show how often the graph is rewired and why.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteRoutingPass(influxdb.PassSample{Kind: "full", Stamp: stamp, Routed: 3})
//
// # Error Handling
//
// Writes are non-blocking; batch failures are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
