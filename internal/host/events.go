package host

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// EventKind names a graph change.
type EventKind string

const (
	EventCardAdded          EventKind = "card_added"
	EventCardRemoved        EventKind = "card_removed"
	EventCardProfileChanged EventKind = "card_profile_changed"
	EventDeviceAdded        EventKind = "device_added"
	EventDeviceRemoved      EventKind = "device_removed"
	EventPortChanged        EventKind = "port_changed"
	EventPortAvailability   EventKind = "port_availability"
	EventStreamAdded        EventKind = "stream_added"
	EventStreamRemoved      EventKind = "stream_removed"
)

// Event reports one change of the Memory graph. Index is the card,
// device or stream index the kind refers to. Removal events carry the
// name and direction of the object that is gone.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Index     uint32         `json:"index"`
	Direction node.Direction `json:"direction"`
	Name      string         `json:"name"`
	Card      uint32         `json:"card"`
	Profile   string         `json:"profile,omitempty"`
	Port      string         `json:"port,omitempty"`
	Available bool           `json:"available,omitempty"`
}

// Bridge event kinds, carried in the last topic segment.
const (
	BridgeCardAdded        = "card_added"
	BridgeCardRemoved      = "card_removed"
	BridgeCardProfile      = "card_profile"
	BridgePortAvailability = "port_availability"
	BridgeStreamAdded      = "stream_added"
	BridgeStreamRemoved    = "stream_removed"
)

// BridgeEvent is a graph change reported by the audio server bridge.
// Objects are named, not indexed; the bridge does not know Memory's
// indexes.
type BridgeEvent struct {
	Kind string `json:"-"`

	Card     string            `json:"card,omitempty"`
	Profiles []Profile         `json:"profiles,omitempty"`
	Profile  string            `json:"profile,omitempty"`
	Props    map[string]string `json:"props,omitempty"`

	Direction string `json:"direction,omitempty"`
	Device    string `json:"device,omitempty"`
	Port      string `json:"port,omitempty"`
	Available bool   `json:"available,omitempty"`

	Stream string `json:"stream,omitempty"`
}

// DecodeBridgeEvent parses the payload of a bridge event topic.
func DecodeBridgeEvent(kind string, payload []byte) (BridgeEvent, error) {
	var ev BridgeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return BridgeEvent{}, fmt.Errorf("%w: %s: %w", ErrInvalidEvent, kind, err)
	}
	ev.Kind = kind
	return ev, nil
}

// Apply folds a bridge event into the model.
func (m *Memory) Apply(ev BridgeEvent) error {
	switch ev.Kind {
	case BridgeCardAdded:
		_, err := m.AddCard(ev.Card, ev.Profiles, ev.Profile, ev.Props)
		return err

	case BridgeCardRemoved:
		c, ok := m.CardByName(ev.Card)
		if !ok {
			return fmt.Errorf("%w: card %q", ErrNoSuchObject, ev.Card)
		}
		return m.RemoveCard(c.Index)

	case BridgeCardProfile:
		c, ok := m.CardByName(ev.Card)
		if !ok {
			return fmt.Errorf("%w: card %q", ErrNoSuchObject, ev.Card)
		}
		return m.switchProfile(c.Index, ev.Profile, false)

	case BridgePortAvailability:
		dir, err := node.ParseDirection(ev.Direction)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		return m.SetPortAvailable(dir, ev.Device, ev.Port, ev.Available)

	case BridgeStreamAdded:
		dir, err := node.ParseDirection(ev.Direction)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		_, err = m.AddStream(dir, ev.Stream, ev.Props)
		return err

	case BridgeStreamRemoved:
		s, ok := m.StreamByName(ev.Stream)
		if !ok {
			return fmt.Errorf("%w: stream %q", ErrNoSuchObject, ev.Stream)
		}
		return m.RemoveStream(s.Index)
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, ev.Kind)
}
