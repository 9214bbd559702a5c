// Package node holds the registry of routing endpoints.
//
// A node is either a device (one per sink or source port) or a stream (a
// playback or capture stream of an application). The registry assigns each
// node a stable ID and tells its hooks about every create, update and
// destroy, synchronously, so the routing tables never hold a dangling ID.
//
// Usage:
//
//	reg := node.NewRegistry()
//	reg.AddHook(router)
//
//	n := node.New("alsa_output.pci.analog-stereo:speaker", node.Output, node.Device)
//	n.Type = "speakers"
//	if _, err := reg.Create(n); err != nil {
//	    return err
//	}
package node
