package node

import (
	"fmt"
	"math"
)

// ID addresses a node in the registry. IDs are allocated sequentially from
// 1 and never reused, so a deferred callback can hold an ID across loop
// iterations and detect a vanished node by a failed lookup.
type ID uint32

// NoID is the zero ID; no node ever has it.
const NoID ID = 0

// InvalidIndex marks a host object index that does not exist (yet), such
// as a stream that is still being set up or a device whose card profile is
// not active.
const InvalidIndex uint32 = math.MaxUint32

// Direction is the data direction of an endpoint.
//
// An input-direction stream (playback) routes to an output-direction device
// (sink). An output-direction stream (capture) is fed by an input-direction
// device (source).
type Direction uint8

const (
	Input Direction = iota
	Output
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Input {
		return Output
	}
	return Input
}

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("direction(%d)", d)
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection converts "input"/"output" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	default:
		return 0, fmt.Errorf("%w: direction %q", ErrInvalidNode, s)
	}
}

// Implement tells physical devices from application streams.
type Implement uint8

const (
	Device Implement = iota
	Stream
)

func (i Implement) String() string {
	switch i {
	case Device:
		return "device"
	case Stream:
		return "stream"
	default:
		return fmt.Sprintf("implement(%d)", i)
	}
}

// MarshalText encodes the implement by name.
func (i Implement) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText decodes a implement name.
func (i *Implement) UnmarshalText(b []byte) error {
	parsed, err := ParseImplement(string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// ParseImplement converts "device"/"stream" to an Implement.
func ParseImplement(s string) (Implement, error) {
	switch s {
	case "device":
		return Device, nil
	case "stream":
		return Stream, nil
	default:
		return 0, fmt.Errorf("%w: implement %q", ErrInvalidNode, s)
	}
}

// Location says whether a device is built in or plugged in. Larger values
// rank higher in the default group order.
type Location uint8

const (
	LocationUnknown Location = iota
	Internal
	External
)

func (l Location) String() string {
	switch l {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// MarshalText encodes the location by name.
func (l Location) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a location name.
func (l *Location) UnmarshalText(b []byte) error {
	parsed, err := ParseLocation(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLocation converts "internal"/"external" to a Location. The empty
// string is LocationUnknown.
func ParseLocation(s string) (Location, error) {
	switch s {
	case "", "unknown":
		return LocationUnknown, nil
	case "internal":
		return Internal, nil
	case "external":
		return External, nil
	default:
		return 0, fmt.Errorf("%w: location %q", ErrInvalidNode, s)
	}
}

// Privacy says whether others in the room can hear a device. Larger values
// rank higher in the default group order.
type Privacy uint8

const (
	PrivacyUnknown Privacy = iota
	Public
	Private
)

func (p Privacy) String() string {
	switch p {
	case Public:
		return "public"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// MarshalText encodes the privacy by name.
func (p Privacy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a privacy name.
func (p *Privacy) UnmarshalText(b []byte) error {
	parsed, err := ParsePrivacy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePrivacy converts "public"/"private" to a Privacy. The empty string
// is PrivacyUnknown.
func ParsePrivacy(s string) (Privacy, error) {
	switch s {
	case "", "unknown":
		return PrivacyUnknown, nil
	case "public":
		return Public, nil
	case "private":
		return Private, nil
	default:
		return 0, fmt.Errorf("%w: privacy %q", ErrInvalidNode, s)
	}
}

// Device types with behaviour the router knows about. Every other type
// string is opaque and only meaningful to the policy.
const (
	TypeBluetoothA2DP = "bluetooth_a2dp"
	TypeBluetoothSCO  = "bluetooth_sco"
)

// Card identifies the sound card behind a device and the card profile the
// device needs.
type Card struct {
	Index   uint32 `json:"index"`
	Profile string `json:"profile,omitempty"`
}

// Node is a routing endpoint: a physical device (one node per device port)
// or an application stream.
//
// Nodes are owned by the Registry and mutated only from the main loop.
type Node struct {
	ID        ID        `json:"id"`
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
	Implement Implement `json:"implement"`

	Channels int      `json:"channels"`
	Location Location `json:"location"`
	Privacy  Privacy  `json:"privacy"`

	// Type is the device class ("speakers", "headphones") or the stream
	// class ("player", "navigator"). The class map is keyed by it.
	Type string `json:"type"`
	Zone string `json:"zone"`

	Visible   bool `json:"visible"`
	Available bool `json:"available"`
	Ignore    bool `json:"ignore"`

	// Bridged marks an input device whose captured audio is played out
	// through a loopback bridge, making the device itself routable.
	Bridged bool `json:"bridged,omitempty"`

	// PhysicalIndex is the host sink, source or stream index.
	PhysicalIndex uint32 `json:"physical_index"`

	Card Card   `json:"card"`
	Port string `json:"port,omitempty"`

	// Name is the host device name, shared by all port nodes of a device.
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Mux and Loop are host indexes of the combine sink and loopback
	// module owned through this node, InvalidIndex when there is none.
	Mux  uint32 `json:"mux"`
	Loop uint32 `json:"loop"`

	// Stamp is the routing pass that last routed this node.
	Stamp uint64 `json:"stamp"`

	// Priority is the class priority, cached when the node is created.
	Priority int `json:"priority"`
}

// IsBluetooth reports whether the node is a Bluetooth device that may be
// routed to before its card profile is active.
func (n *Node) IsBluetooth() bool {
	return n.Implement == Device && (n.Type == TypeBluetoothA2DP || n.Type == TypeBluetoothSCO)
}

// Materialized reports whether the host object behind the node exists.
func (n *Node) Materialized() bool {
	return n.PhysicalIndex != InvalidIndex
}

// Routable reports whether the node can be a routing source: a stream, or
// an input device bridged through a loopback.
func (n *Node) Routable() bool {
	return n.Implement == Stream || (n.Direction == Input && n.Bridged)
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %s #%d %q", n.Direction, n.Implement, n.ID, n.Key)
}
