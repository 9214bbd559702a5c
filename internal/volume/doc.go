// Package volume attenuates lower-priority stream classes on a device while
// a higher-priority class is routed to it.
//
// The router reports every edge of a routing pass with AddLimitingClass and
// closes the pass with Commit. The limiter then works out, per device, which
// classes must be limited and pushes only the differences to the host:
//
//	lim, err := volume.NewLimiter(graph, []volume.Rule{
//	    {Class: "player", When: []string{"navigator", "phone"}, LimitDB: -20},
//	})
//	router := routing.NewRouter(registry, sw, lim)
//
// A limit of 0 dB means "no limit"; the host treats it as a clear.
package volume
