// Package policy loads the routing policy file and turns it into router
// state.
//
// The policy is static: it is read once at startup and never reloaded.
// It declares:
//
//   - zones
//   - routing groups, each with an accept rule and a compare rule
//   - the class map (zone, device direction, class) -> group
//   - class priorities, which order the priority list
//   - volume limit rules
//   - device types bridged through a loopback
//   - stream classes that own a mux
//   - classifier rules that derive node attributes from host properties
//
// Usage:
//
//	pol, err := policy.Load(cfg.Policy.File)
//	if err != nil {
//	    return err
//	}
//	if err := pol.Apply(router, zones); err != nil {
//	    return err
//	}
//	classifier, err := pol.NewClassifier()
package policy
