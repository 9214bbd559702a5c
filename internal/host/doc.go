// Package host models the audio server graph the router acts on.
//
// Graph is the set of primitives the switcher needs: moving a stream,
// switching a card profile or a device port, and managing combine sinks
// and loopback bridges. Every primitive either succeeds or leaves the
// graph unchanged.
//
// Memory is the in-process implementation. It holds cards, devices,
// streams, combine sinks and loopbacks, reports every change as an Event
// to a listener, and mirrors every command to an optional CommandSink so
// an audio server bridge can replay it. The bridge reports changes made
// outside the policy core (hotplug, new applications) as BridgeEvents,
// which Apply folds into the model.
//
// Memory is confined to the main loop goroutine, like the registry.
package host
