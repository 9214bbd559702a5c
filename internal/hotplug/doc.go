// Package hotplug watches the kernel for sound-card changes.
//
// A Monitor listens on the udev netlink socket for SUBSYSTEM=sound
// uevents. Plugging in a USB headset produces a burst of events (card,
// control device, every PCM), so events are debounced: once the burst has
// been quiet for the debounce period the handler receives the set of
// cards that changed. The daemon hands that to the main loop, which
// rescans the host graph and requests a routing pass.
//
// The monitor is an optional safety net. The audio server bridge reports
// the same changes over MQTT; a monitor that cannot open the netlink
// socket logs a warning and leaves routing to those events.
package hotplug
