package switcher

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// CreateMux gives n a combine sink of its own and moves n's stream (or
// the stream of its loopback) onto it.
//
// Returns:
//   - uint32: Host index of the combine sink, to be stored in n.Mux
//   - error: If the combine sink cannot be created or the stream moved
func (s *Switcher) CreateMux(n *node.Node) (uint32, error) {
	stream := n.PhysicalIndex
	if n.Implement == node.Device {
		lp, ok := s.loops[n.Loop]
		if !ok {
			return 0, fmt.Errorf("%w: %s has no loopback to multiplex", ErrNoLoop, n)
		}
		stream = lp.Stream
	} else if n.Direction != node.Input {
		return 0, fmt.Errorf("%w: capture stream %s cannot own a mux", ErrUnsupportedLink, n)
	}

	combine, err := s.graph.CreateCombine("combine."+n.Key, nil)
	if err != nil {
		return 0, fmt.Errorf("creating mux for %s: %w", n.Key, err)
	}
	if stream != node.InvalidIndex {
		if err := s.graph.MoveStream(stream, combine); err != nil {
			_ = s.graph.DestroyCombine(combine)
			return 0, fmt.Errorf("moving %s onto its mux: %w", n.Key, err)
		}
	}

	s.muxes[combine] = &Mux{Owner: n.ID, Combine: combine}
	s.logger.Debug("mux created", "owner", n.Key, "combine", combine)
	return combine, nil
}

// CreateLoop creates the loopback bridge of a bridged input device.
//
// Returns:
//   - uint32: Loopback module index, to be stored in n.Loop
func (s *Switcher) CreateLoop(n *node.Node) (uint32, error) {
	if n.Implement != node.Device || n.Direction != node.Input || !n.Bridged {
		return 0, fmt.Errorf("%w: %s is not a bridged input device", ErrUnsupportedLink, n)
	}
	if !n.Materialized() {
		return 0, fmt.Errorf("%w: %s", ErrDeviceNotReady, n.Key)
	}

	lb, err := s.graph.CreateLoopback(n.PhysicalIndex, node.InvalidIndex)
	if err != nil {
		return 0, fmt.Errorf("creating loop for %s: %w", n.Key, err)
	}
	s.loops[lb.Module] = &Loop{Owner: n.ID, Module: lb.Module, Stream: lb.Stream}
	s.logger.Debug("loop created", "owner", n.Key, "module", lb.Module)
	return lb.Module, nil
}

// ScheduleDestroy tears down the mux and loopback of n on the next main
// loop iteration. The callback finds them again by host index and does
// nothing when they are already gone.
func (s *Switcher) ScheduleDestroy(n *node.Node) {
	muxIdx, loopIdx, key := n.Mux, n.Loop, n.Key
	if muxIdx == node.InvalidIndex && loopIdx == node.InvalidIndex {
		return
	}

	s.loop.Defer(func() {
		if mux, ok := s.muxes[muxIdx]; ok {
			delete(s.muxes, muxIdx)
			if err := s.graph.DestroyCombine(mux.Combine); err != nil {
				s.logger.Warn("mux teardown failed", "owner", key, "error", err)
			}
		}
		if lp, ok := s.loops[loopIdx]; ok {
			delete(s.loops, loopIdx)
			if err := s.graph.DestroyLoopback(lp.Module); err != nil {
				s.logger.Warn("loop teardown failed", "owner", key, "error", err)
			}
		}
		s.logger.Debug("mux and loop released", "owner", key)
	})
}

// MuxOf returns a copy of the mux with the given combine index.
func (s *Switcher) MuxOf(combine uint32) (Mux, bool) {
	mux, ok := s.muxes[combine]
	if !ok {
		return Mux{}, false
	}
	return mux.clone(), true
}

// LoopOf returns a copy of the loop with the given module index.
func (s *Switcher) LoopOf(module uint32) (Loop, bool) {
	lp, ok := s.loops[module]
	if !ok {
		return Loop{}, false
	}
	return *lp, true
}

// Counts returns the number of live muxes and loops.
func (s *Switcher) Counts() (muxes, loops int) {
	return len(s.muxes), len(s.loops)
}
