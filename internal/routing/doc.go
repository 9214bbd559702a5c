// Package routing decides which device every stream is connected to.
//
// The Router owns four structures that are threaded through the node
// registry:
//   - routing groups: per direction, ranked candidate lists of device nodes
//   - the class map: (zone, direction, class) to routing group
//   - constraints: predicates that block a candidate without removing it
//   - the priority list: every routable node, ascending by class priority
//
// plus the explicit route table fed by the external resource manager.
//
// A routing pass (MakeRouting) first realises every unblocked explicit
// route, then walks the priority list from lowest to highest priority
// and connects each remaining node to the first acceptable entry of its
// group. Higher priority nodes are resolved last, so their switch
// directives win when several streams contend for one device.
//
// The Router registers itself as a node.Hook, so creating or destroying a
// node keeps every group, constraint and the priority list in step.
//
// Thread Safety:
//   - None. The Router is confined to the main loop goroutine.
//
// Usage:
//
//	r := routing.NewRouter(registry, switcher, limiter)
//	g, _ := r.CreateGroup(node.Output, "default", routing.AcceptAll, routing.DefaultCompare(nil))
//	_ = r.AssignClass("default", node.Output, "player", g.Name)
//	report := r.MakeRouting()
package routing
