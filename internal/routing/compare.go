package routing

import (
	"cmp"
	"slices"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// maxRankedChannels caps the channel count that takes part in ranking.
const maxRankedChannels = 31

// AcceptAll admits every device of the group's direction.
func AcceptAll(_ *Group, _ *node.Node) bool {
	return true
}

// AcceptTypes admits devices whose type is listed.
func AcceptTypes(types ...string) AcceptFunc {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(_ *Group, n *node.Node) bool {
		_, ok := set[n.Type]
		return ok
	}
}

// DefaultCompare ranks devices by channel count, then privacy, then
// location, then the type rank returned by rank. Higher values are
// preferred. A nil rank ranks every type equal.
//
// The order equals comparing the packed key
// channels<<15 | privacy<<10 | location<<8 | rank
// for channels below 32, privacy below 32, location below 4 and rank
// below 256.
func DefaultCompare(rank func(typ string) int) CompareFunc {
	if rank == nil {
		rank = func(string) int { return 0 }
	}
	return func(_ *Group, a, b *node.Node) int {
		if c := cmp.Compare(rankedChannels(b), rankedChannels(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Privacy, a.Privacy); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Location, a.Location); c != 0 {
			return c
		}
		return cmp.Compare(rank(b.Type), rank(a.Type))
	}
}

// OrderedCompare ranks devices by the position of their type in types,
// earliest first. Unlisted types rank after every listed one.
func OrderedCompare(types []string) CompareFunc {
	pos := func(t string) int {
		if i := slices.Index(types, t); i >= 0 {
			return i
		}
		return len(types)
	}
	return func(_ *Group, a, b *node.Node) int {
		return cmp.Compare(pos(a.Type), pos(b.Type))
	}
}

func rankedChannels(n *node.Node) int {
	return min(n.Channels, maxRankedChannels)
}
