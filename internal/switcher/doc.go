// Package switcher carries out routing directives on the host graph.
//
// SetupLink dispatches on the kinds of its endpoints:
//   - stream to device (playback): move the stream, or update its mux
//   - device to stream (capture): move the capture stream to the source
//   - bridged device to device: route the loopback's synthetic stream the
//     same way, recursively
//   - anything else: ErrUnsupportedLink
//
// Before a device is used it is activated: its card profile is switched
// when it differs from the active one, then its port. Only one profile
// switch may be in flight. A failed port switch reverts the profile, so a
// directive either applies fully or leaves the graph as it was.
//
// A mux is a combine sink owned by one stream. It has exactly one default
// member, set by default routing, and any number of explicit members,
// added by explicit routes. A device that is both is listed once.
//
// Muxes and loopbacks outlive their owner by one main loop iteration:
// ScheduleDestroy defers their teardown and the deferred callback finds
// them again by host index.
package switcher
