package host

import "github.com/nerrad567/gray-logic-audio/internal/node"

// Graph is the set of host primitives the switcher uses.
type Graph interface {
	// MoveStream connects a stream to a device or combine sink.
	MoveStream(stream, device uint32) error

	ActiveProfile(card uint32) (string, error)
	SetCardProfile(card uint32, profile string) error

	ActivePort(dir node.Direction, device uint32) (string, error)
	SetDevicePort(dir node.Direction, device uint32, port string) error

	// LookupDevice resolves a device name to its current index. Indexes
	// change whenever a profile switch recreates the device.
	LookupDevice(dir node.Direction, name string) (uint32, bool)

	CreateCombine(name string, slaves []uint32) (uint32, error)
	SetCombineSlaves(combine uint32, slaves []uint32) error
	DestroyCombine(combine uint32) error

	// CreateLoopback plays the capture of source into sink through a
	// synthetic playback stream.
	CreateLoopback(source, sink uint32) (Loopback, error)
	DestroyLoopback(module uint32) error

	// SetClassVolumeLimit attenuates streams of class on device. A limit
	// of 0 dB removes the attenuation.
	SetClassVolumeLimit(device uint32, class string, limitDB float64) error
}

// DeviceSpec describes a device a card profile provides.
type DeviceSpec struct {
	Direction   string            `json:"direction" yaml:"direction"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description"`
	Channels    int               `json:"channels" yaml:"channels"`
	Ports       []PortSpec        `json:"ports,omitempty" yaml:"ports"`
	Props       map[string]string `json:"props,omitempty" yaml:"props"`
}

// PortSpec describes a device port.
type PortSpec struct {
	Name      string `json:"name" yaml:"name"`
	Available bool   `json:"available" yaml:"available"`
}

// Profile is a card profile and the devices it brings up.
type Profile struct {
	Name    string       `json:"name" yaml:"name"`
	Devices []DeviceSpec `json:"devices,omitempty" yaml:"devices"`
}

// Card is a sound card.
type Card struct {
	Index    uint32            `json:"index"`
	Name     string            `json:"name"`
	Profiles []Profile         `json:"profiles"`
	Active   string            `json:"active"`
	Props    map[string]string `json:"props,omitempty"`
}

// Port is the live state of a device port.
type Port struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Device is a sink (output) or source (input).
type Device struct {
	Index       uint32            `json:"index"`
	Direction   node.Direction    `json:"direction"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Card        uint32            `json:"card"`
	Profile     string            `json:"profile"`
	Channels    int               `json:"channels"`
	Ports       []Port            `json:"ports,omitempty"`
	ActivePort  string            `json:"active_port,omitempty"`
	Props       map[string]string `json:"props,omitempty"`
}

// Stream is an application stream: playback (input direction) or
// capture (output direction).
type Stream struct {
	Index     uint32            `json:"index"`
	Direction node.Direction    `json:"direction"`
	Name      string            `json:"name"`
	Props     map[string]string `json:"props,omitempty"`

	// Device is the sink or source the stream is connected to, or
	// node.InvalidIndex.
	Device uint32 `json:"device"`

	// Internal marks the synthetic stream of a loopback.
	Internal bool `json:"internal,omitempty"`
}

// Combine is a combine sink fanning one stream out to several sinks.
type Combine struct {
	Index  uint32   `json:"index"`
	Name   string   `json:"name"`
	Slaves []uint32 `json:"slaves"`
}

// Loopback bridges a source into a sink.
type Loopback struct {
	Module uint32 `json:"module"`
	Source uint32 `json:"source"`
	Sink   uint32 `json:"sink"`

	// Stream is the synthetic playback stream; moving it re-targets the bridge.
	Stream uint32 `json:"stream"`
}
