package switcher

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/host"
	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// Logger defines the logging interface used by the Switcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Deferrer schedules a callback for the next main loop iteration.
type Deferrer interface {
	Defer(fn func())
}

// Switcher implements routing.Switcher on a host.Graph.
type Switcher struct {
	graph    host.Graph
	registry *node.Registry
	loop     Deferrer
	logger   Logger

	muxes map[uint32]*Mux
	loops map[uint32]*Loop

	// switching guards against nested profile switches.
	switching bool
}

// New creates a Switcher.
func New(graph host.Graph, registry *node.Registry, loop Deferrer) *Switcher {
	return &Switcher{
		graph:    graph,
		registry: registry,
		loop:     loop,
		logger:   noopLogger{},
		muxes:    make(map[uint32]*Mux),
		loops:    make(map[uint32]*Loop),
	}
}

// SetLogger sets the logger for the switcher.
func (s *Switcher) SetLogger(logger Logger) {
	s.logger = logger
}

// SetupLink connects from to to.
func (s *Switcher) SetupLink(from, to *node.Node, explicit bool) error {
	switch {
	case from.Implement == node.Stream && from.Direction == node.Input &&
		to.Implement == node.Device && to.Direction == node.Output:
		return s.linkPlayback(from, to, explicit)

	case from.Implement == node.Device && from.Direction == node.Input &&
		to.Implement == node.Stream && to.Direction == node.Output:
		return s.linkCapture(from, to)

	case from.Implement == node.Device && from.Direction == node.Input && from.Bridged &&
		to.Implement == node.Device && to.Direction == node.Output:
		bridge, err := s.bridgeStream(from)
		if err != nil {
			return err
		}
		return s.SetupLink(bridge, to, explicit)
	}
	return fmt.Errorf("%w: %s -> %s", ErrUnsupportedLink, from, to)
}

// TeardownLink removes the explicit member to from the mux of from. A
// stream without a mux has nothing to tear down; the next routing pass
// moves it.
func (s *Switcher) TeardownLink(from, to *node.Node) error {
	if from.Implement == node.Device && from.Bridged {
		bridge, err := s.bridgeStream(from)
		if err != nil {
			return err
		}
		return s.TeardownLink(bridge, to)
	}
	if from.Implement != node.Stream || from.Mux == node.InvalidIndex {
		return nil
	}

	mux, ok := s.muxes[from.Mux]
	if !ok {
		return fmt.Errorf("%w: %d on %s", ErrNoMux, from.Mux, from)
	}
	if !mux.removeExplicit(to.ID) {
		return nil
	}
	if err := s.graph.SetCombineSlaves(mux.Combine, s.slaves(mux, node.NoID, node.InvalidIndex)); err != nil {
		mux.addExplicit(to.ID)
		return fmt.Errorf("removing %s from mux of %s: %w", to.Key, from.Key, err)
	}
	s.logger.Debug("mux member removed", "owner", from.Key, "device", to.Key)
	return nil
}

func (s *Switcher) linkPlayback(stream, device *node.Node, explicit bool) error {
	idx, undo, err := s.activate(device)
	if err != nil {
		return err
	}

	if stream.Mux == node.InvalidIndex {
		if err := s.graph.MoveStream(stream.PhysicalIndex, idx); err != nil {
			undo()
			return fmt.Errorf("moving %s to %s: %w", stream.Key, device.Key, err)
		}
		return nil
	}

	mux, ok := s.muxes[stream.Mux]
	if !ok {
		undo()
		return fmt.Errorf("%w: %d on %s", ErrNoMux, stream.Mux, stream)
	}
	before := mux.clone()
	if explicit {
		mux.addExplicit(device.ID)
	} else {
		mux.Default = device.ID
	}
	if err := s.graph.SetCombineSlaves(mux.Combine, s.slaves(mux, device.ID, idx)); err != nil {
		*mux = before
		undo()
		return fmt.Errorf("updating mux of %s: %w", stream.Key, err)
	}
	return nil
}

func (s *Switcher) linkCapture(device, stream *node.Node) error {
	idx, undo, err := s.activate(device)
	if err != nil {
		return err
	}
	if err := s.graph.MoveStream(stream.PhysicalIndex, idx); err != nil {
		undo()
		return fmt.Errorf("moving %s to %s: %w", stream.Key, device.Key, err)
	}
	return nil
}

// bridgeStream returns a stand-in stream node for the loopback of a
// bridged device. It shares the device's ID and mux.
func (s *Switcher) bridgeStream(device *node.Node) (*node.Node, error) {
	lp, ok := s.loops[device.Loop]
	if !ok {
		return nil, fmt.Errorf("%w: %d on %s", ErrNoLoop, device.Loop, device)
	}
	return &node.Node{
		ID:            device.ID,
		Key:           device.Key + ".loop",
		Direction:     node.Input,
		Implement:     node.Stream,
		Type:          device.Type,
		Zone:          device.Zone,
		PhysicalIndex: lp.Stream,
		Card:          node.Card{Index: node.InvalidIndex},
		Mux:           device.Mux,
		Loop:          node.InvalidIndex,
	}, nil
}

// slaves resolves mux members to host indexes. current is the device
// being linked; its index comes from activation because the registry
// learns about a recreated device only on the next iteration.
func (s *Switcher) slaves(mux *Mux, current node.ID, currentIdx uint32) []uint32 {
	var out []uint32
	for _, id := range mux.members() {
		if id == current {
			out = append(out, currentIdx)
			continue
		}
		n := s.registry.FindByIndex(id)
		if n == nil || !n.Materialized() {
			continue
		}
		out = append(out, n.PhysicalIndex)
	}
	return out
}

// activate brings a device up: card profile first, then port. It returns
// the device's current host index and a function restoring the previous
// port and profile, for callers whose later primitive fails.
func (s *Switcher) activate(device *node.Node) (uint32, func(), error) {
	idx := device.PhysicalIndex
	card := device.Card

	revertProfile := ""
	if card.Index != node.InvalidIndex && card.Profile != "" {
		active, err := s.graph.ActiveProfile(card.Index)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %s: %w", ErrActivationFailed, device.Key, err)
		}
		if active != card.Profile {
			if err := s.switchProfile(card.Index, card.Profile); err != nil {
				return 0, nil, fmt.Errorf("%w: %s: %w", ErrActivationFailed, device.Key, err)
			}
			s.logger.Info("card profile switched", "device", device.Key, "from", active, "to", card.Profile)
			revertProfile = active
		}

		var ok bool
		idx, ok = s.graph.LookupDevice(device.Direction, device.Name)
		if !ok {
			s.revertProfile(card.Index, revertProfile)
			return 0, nil, fmt.Errorf("%w: %s not present under profile %q", ErrDeviceNotReady, device.Key, card.Profile)
		}
	}
	if idx == node.InvalidIndex {
		return 0, nil, fmt.Errorf("%w: %s", ErrDeviceNotReady, device.Key)
	}

	revertPort := ""
	if device.Port != "" {
		port, err := s.graph.ActivePort(device.Direction, idx)
		if err == nil && port != device.Port {
			if err = s.graph.SetDevicePort(device.Direction, idx, device.Port); err == nil {
				revertPort = port
			}
		}
		if err != nil {
			s.revertProfile(card.Index, revertProfile)
			return 0, nil, fmt.Errorf("%w: %s port %q: %w", ErrActivationFailed, device.Key, device.Port, err)
		}
	}

	undo := func() {
		if revertPort != "" {
			if err := s.graph.SetDevicePort(device.Direction, idx, revertPort); err != nil {
				s.logger.Warn("port revert failed", "device", device.Key, "port", revertPort, "error", err)
			}
		}
		s.revertProfile(card.Index, revertProfile)
	}
	return idx, undo, nil
}

func (s *Switcher) switchProfile(card uint32, profile string) error {
	if s.switching {
		return ErrProfileSwitchInProgress
	}
	s.switching = true
	defer func() { s.switching = false }()
	return s.graph.SetCardProfile(card, profile)
}

func (s *Switcher) revertProfile(card uint32, profile string) {
	if profile == "" {
		return
	}
	if err := s.switchProfile(card, profile); err != nil {
		s.logger.Warn("card profile revert failed", "card", card, "profile", profile, "error", err)
	}
}
