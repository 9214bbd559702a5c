// Package engine connects the host audio graph to the router.
//
// It listens for host graph events, classifies new devices and streams
// with the policy classifier, keeps the node registry in step with the
// host, and asks the router for a pass whenever the topology changes.
//
// # Event handling
//
// Host events can fire while the router is in the middle of a pass: a
// card profile switch issued by the switcher removes and re-adds
// devices synchronously. The engine therefore handles every event on the
// next main loop iteration, never on the stack that emitted it, and
// coalesces routing requests so that a burst of events costs one pass.
//
// # Nodes
//
//   - A device with several ports gets one node per port, keyed
//     "name:port". With port constraints enabled the port nodes of one
//     device share a constraint that blocks every port but the active one.
//   - A Bluetooth card gets a node for every device of every profile when
//     it appears. Nodes of inactive profiles stay unmaterialized and the
//     switcher activates the profile when one of them is chosen.
//   - An input device of a bridged type gets a single node and a loopback.
//   - A new stream is previewed with prerouting and placed on the
//     previewed device before the next full pass.
package engine
