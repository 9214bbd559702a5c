package switcher

import (
	"slices"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// Mux is a combine sink owned by a stream or a bridged device.
type Mux struct {
	Owner   node.ID `json:"owner"`
	Combine uint32  `json:"combine"`

	// Default is the member set by default routing, node.NoID for none.
	Default  node.ID   `json:"default"`
	Explicit []node.ID `json:"explicit,omitempty"`
}

// members returns the member devices, default first, without duplicates.
func (m *Mux) members() []node.ID {
	var out []node.ID
	if m.Default != node.NoID {
		out = append(out, m.Default)
	}
	for _, id := range m.Explicit {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Mux) addExplicit(id node.ID) bool {
	if slices.Contains(m.Explicit, id) {
		return false
	}
	m.Explicit = append(m.Explicit, id)
	return true
}

func (m *Mux) removeExplicit(id node.ID) bool {
	i := slices.Index(m.Explicit, id)
	if i < 0 {
		return false
	}
	m.Explicit = slices.Delete(m.Explicit, i, i+1)
	return true
}

func (m *Mux) clone() Mux {
	out := *m
	out.Explicit = slices.Clone(m.Explicit)
	return out
}

// Loop is the loopback bridge of a bridged input device.
type Loop struct {
	Owner  node.ID `json:"owner"`
	Module uint32  `json:"module"`

	// Stream is the synthetic playback stream of the bridge.
	Stream uint32 `json:"stream"`
}
