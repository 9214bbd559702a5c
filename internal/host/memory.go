package host

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// combineBase is the first combine sink index, keeping combine sinks
// apart from device indexes.
const combineBase uint32 = 1 << 20

// CommandSink receives a copy of every command the policy core issues.
type CommandSink interface {
	Command(op string, args map[string]any)
}

// Memory is an in-process audio graph.
type Memory struct {
	cards     map[uint32]*Card
	devices   map[uint32]*Device
	streams   map[uint32]*Stream
	combines  map[uint32]*Combine
	loopbacks map[uint32]*Loopback
	limits    map[uint32]map[string]float64

	nextCard    uint32
	nextDevice  uint32
	nextStream  uint32
	nextCombine uint32
	nextModule  uint32

	listener func(Event)
	sink     CommandSink
}

// NewMemory returns an empty graph.
func NewMemory() *Memory {
	return &Memory{
		cards:       make(map[uint32]*Card),
		devices:     make(map[uint32]*Device),
		streams:     make(map[uint32]*Stream),
		combines:    make(map[uint32]*Combine),
		loopbacks:   make(map[uint32]*Loopback),
		limits:      make(map[uint32]map[string]float64),
		nextCard:    1,
		nextDevice:  1,
		nextStream:  1,
		nextCombine: combineBase,
		nextModule:  1,
	}
}

// SetListener sets the function told about every change. It runs
// synchronously inside the call that caused the change.
func (m *Memory) SetListener(fn func(Event)) {
	m.listener = fn
}

// SetCommandSink mirrors every command to sink.
func (m *Memory) SetCommandSink(sink CommandSink) {
	m.sink = sink
}

func (m *Memory) emit(ev Event) {
	if m.listener != nil {
		m.listener(ev)
	}
}

func (m *Memory) command(op string, args map[string]any) {
	if m.sink != nil {
		m.sink.Command(op, args)
	}
}

// AddCard adds a card and brings up the devices of its active profile.
func (m *Memory) AddCard(name string, profiles []Profile, active string, props map[string]string) (uint32, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: card without a name", ErrInvalidEvent)
	}
	if _, ok := m.CardByName(name); ok {
		return 0, fmt.Errorf("%w: card %q already present", ErrInvalidEvent, name)
	}
	if active != "" && findProfile(profiles, active) == nil {
		return 0, fmt.Errorf("%w: card %q has no profile %q", ErrNoSuchProfile, name, active)
	}

	c := &Card{
		Index:    m.nextCard,
		Name:     name,
		Profiles: slices.Clone(profiles),
		Active:   active,
		Props:    maps.Clone(props),
	}
	m.nextCard++
	m.cards[c.Index] = c
	m.emit(Event{Kind: EventCardAdded, Index: c.Index, Name: name, Card: c.Index, Profile: active})

	return c.Index, m.bringUp(c)
}

// RemoveCard removes a card and its devices.
func (m *Memory) RemoveCard(index uint32) error {
	c, ok := m.cards[index]
	if !ok {
		return fmt.Errorf("%w: card %d", ErrNoSuchObject, index)
	}
	m.tearDown(c)
	delete(m.cards, index)
	m.emit(Event{Kind: EventCardRemoved, Index: index, Name: c.Name, Card: index})
	return nil
}

// ActiveProfile implements Graph.
func (m *Memory) ActiveProfile(card uint32) (string, error) {
	c, ok := m.cards[card]
	if !ok {
		return "", fmt.Errorf("%w: card %d", ErrNoSuchObject, card)
	}
	return c.Active, nil
}

// SetCardProfile implements Graph. The devices of the old profile go
// away and those of the new one come up with new indexes.
func (m *Memory) SetCardProfile(card uint32, profile string) error {
	return m.switchProfile(card, profile, true)
}

func (m *Memory) switchProfile(card uint32, profile string, mirror bool) error {
	c, ok := m.cards[card]
	if !ok {
		return fmt.Errorf("%w: card %d", ErrNoSuchObject, card)
	}
	if findProfile(c.Profiles, profile) == nil {
		return fmt.Errorf("%w: card %q has no profile %q", ErrNoSuchProfile, c.Name, profile)
	}
	if c.Active == profile {
		return nil
	}

	if mirror {
		m.command("set_card_profile", map[string]any{"card": c.Name, "profile": profile})
	}
	m.tearDown(c)
	c.Active = profile
	m.emit(Event{Kind: EventCardProfileChanged, Index: card, Name: c.Name, Card: card, Profile: profile})
	return m.bringUp(c)
}

func (m *Memory) bringUp(c *Card) error {
	p := findProfile(c.Profiles, c.Active)
	if p == nil {
		return nil
	}
	for _, spec := range p.Devices {
		dir, err := node.ParseDirection(spec.Direction)
		if err != nil {
			return fmt.Errorf("%w: card %q: %w", ErrInvalidEvent, c.Name, err)
		}
		d := &Device{
			Index:       m.nextDevice,
			Direction:   dir,
			Name:        spec.Name,
			Description: spec.Description,
			Card:        c.Index,
			Profile:     p.Name,
			Channels:    spec.Channels,
			Props:       maps.Clone(spec.Props),
		}
		for _, ps := range spec.Ports {
			d.Ports = append(d.Ports, Port(ps))
		}
		d.ActivePort = firstAvailablePort(d.Ports)
		m.nextDevice++
		m.devices[d.Index] = d
		m.emit(Event{Kind: EventDeviceAdded, Index: d.Index, Direction: dir, Name: d.Name, Card: c.Index, Profile: p.Name, Port: d.ActivePort})
	}
	return nil
}

func (m *Memory) tearDown(c *Card) {
	for _, d := range m.sortedDevices() {
		if d.Card == c.Index {
			m.removeDevice(d)
		}
	}
}

func (m *Memory) removeDevice(d *Device) {
	for _, s := range m.streams {
		if s.Device == d.Index {
			s.Device = node.InvalidIndex
		}
	}
	for _, cb := range m.combines {
		cb.Slaves = slices.DeleteFunc(cb.Slaves, func(i uint32) bool { return i == d.Index })
	}
	delete(m.limits, d.Index)
	delete(m.devices, d.Index)
	m.emit(Event{Kind: EventDeviceRemoved, Index: d.Index, Direction: d.Direction, Name: d.Name, Card: d.Card, Profile: d.Profile})
}

// ActivePort implements Graph.
func (m *Memory) ActivePort(dir node.Direction, device uint32) (string, error) {
	d, err := m.device(dir, device)
	if err != nil {
		return "", err
	}
	return d.ActivePort, nil
}

// SetDevicePort implements Graph.
func (m *Memory) SetDevicePort(dir node.Direction, device uint32, port string) error {
	d, err := m.device(dir, device)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(d.Ports, func(p Port) bool { return p.Name == port })
	if i < 0 {
		return fmt.Errorf("%w: %q on %s", ErrNoSuchPort, port, d.Name)
	}
	if !d.Ports[i].Available {
		return fmt.Errorf("%w: %q on %s", ErrPortUnavailable, port, d.Name)
	}
	if d.ActivePort == port {
		return nil
	}

	m.command("set_port", map[string]any{"direction": dir.String(), "device": d.Name, "port": port})
	d.ActivePort = port
	m.emit(Event{Kind: EventPortChanged, Index: d.Index, Direction: dir, Name: d.Name, Card: d.Card, Port: port})
	return nil
}

// SetPortAvailable records that a port was plugged or unplugged.
func (m *Memory) SetPortAvailable(dir node.Direction, name, port string, available bool) error {
	idx, ok := m.LookupDevice(dir, name)
	if !ok {
		return fmt.Errorf("%w: %s device %q", ErrNoSuchObject, dir, name)
	}
	d := m.devices[idx]
	i := slices.IndexFunc(d.Ports, func(p Port) bool { return p.Name == port })
	if i < 0 {
		return fmt.Errorf("%w: %q on %s", ErrNoSuchPort, port, name)
	}
	if d.Ports[i].Available == available {
		return nil
	}
	d.Ports[i].Available = available
	m.emit(Event{Kind: EventPortAvailability, Index: idx, Direction: dir, Name: name, Card: d.Card, Port: port, Available: available})
	return nil
}

// LookupDevice implements Graph.
func (m *Memory) LookupDevice(dir node.Direction, name string) (uint32, bool) {
	for _, d := range m.devices {
		if d.Direction == dir && d.Name == name {
			return d.Index, true
		}
	}
	return node.InvalidIndex, false
}

// AddStream adds an application stream, not yet connected to any device.
func (m *Memory) AddStream(dir node.Direction, name string, props map[string]string) (uint32, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: stream without a name", ErrInvalidEvent)
	}
	if _, ok := m.StreamByName(name); ok {
		return 0, fmt.Errorf("%w: stream %q already present", ErrInvalidEvent, name)
	}
	s := m.newStream(dir, name, props)
	m.emit(Event{Kind: EventStreamAdded, Index: s.Index, Direction: dir, Name: name})
	return s.Index, nil
}

func (m *Memory) newStream(dir node.Direction, name string, props map[string]string) *Stream {
	s := &Stream{
		Index:     m.nextStream,
		Direction: dir,
		Name:      name,
		Props:     maps.Clone(props),
		Device:    node.InvalidIndex,
	}
	m.nextStream++
	m.streams[s.Index] = s
	return s
}

// RemoveStream removes an application stream.
func (m *Memory) RemoveStream(index uint32) error {
	s, ok := m.streams[index]
	if !ok || s.Internal {
		return fmt.Errorf("%w: stream %d", ErrNoSuchObject, index)
	}
	delete(m.streams, index)
	m.emit(Event{Kind: EventStreamRemoved, Index: index, Direction: s.Direction, Name: s.Name})
	return nil
}

// MoveStream implements Graph. Playback streams go to sinks or combine
// sinks, capture streams to sources.
func (m *Memory) MoveStream(stream, device uint32) error {
	s, ok := m.streams[stream]
	if !ok {
		return fmt.Errorf("%w: stream %d", ErrNoSuchObject, stream)
	}

	if cb, ok := m.combines[device]; ok {
		if s.Direction != node.Input {
			return fmt.Errorf("%w: capture stream %q to combine sink %q", ErrDirectionMismatch, s.Name, cb.Name)
		}
	} else {
		if _, err := m.device(s.Direction.Opposite(), device); err != nil {
			return err
		}
	}
	if s.Device == device {
		return nil
	}

	m.command("move_stream", map[string]any{"stream": s.Name, "device": m.objectName(device)})
	s.Device = device
	return nil
}

// CreateCombine implements Graph.
func (m *Memory) CreateCombine(name string, slaves []uint32) (uint32, error) {
	if err := m.checkSinks(slaves); err != nil {
		return 0, err
	}
	cb := &Combine{Index: m.nextCombine, Name: name, Slaves: slices.Clone(slaves)}
	m.nextCombine++
	m.combines[cb.Index] = cb
	m.command("create_combine", map[string]any{"name": name, "slaves": m.names(slaves)})
	return cb.Index, nil
}

// SetCombineSlaves implements Graph.
func (m *Memory) SetCombineSlaves(combine uint32, slaves []uint32) error {
	cb, ok := m.combines[combine]
	if !ok {
		return fmt.Errorf("%w: combine %d", ErrNoSuchObject, combine)
	}
	if err := m.checkSinks(slaves); err != nil {
		return err
	}
	if slices.Equal(cb.Slaves, slaves) {
		return nil
	}
	cb.Slaves = slices.Clone(slaves)
	m.command("set_combine_slaves", map[string]any{"name": cb.Name, "slaves": m.names(slaves)})
	return nil
}

// DestroyCombine implements Graph. Streams on it are left unconnected.
func (m *Memory) DestroyCombine(combine uint32) error {
	cb, ok := m.combines[combine]
	if !ok {
		return fmt.Errorf("%w: combine %d", ErrNoSuchObject, combine)
	}
	for _, s := range m.streams {
		if s.Device == combine {
			s.Device = node.InvalidIndex
		}
	}
	delete(m.combines, combine)
	m.command("destroy_combine", map[string]any{"name": cb.Name})
	return nil
}

// CreateLoopback implements Graph. sink may be node.InvalidIndex for a
// bridge that is routed later by moving its stream.
func (m *Memory) CreateLoopback(source, sink uint32) (Loopback, error) {
	src, err := m.device(node.Input, source)
	if err != nil {
		return Loopback{}, err
	}
	if _, ok := m.combines[sink]; !ok && sink != node.InvalidIndex {
		if _, err := m.device(node.Output, sink); err != nil {
			return Loopback{}, err
		}
	}

	s := m.newStream(node.Input, "loopback."+src.Name, nil)
	s.Internal = true
	s.Device = sink

	lb := &Loopback{Module: m.nextModule, Source: source, Sink: sink, Stream: s.Index}
	m.nextModule++
	m.loopbacks[lb.Module] = lb
	m.command("create_loopback", map[string]any{"source": src.Name, "sink": m.objectName(sink)})
	return *lb, nil
}

// DestroyLoopback implements Graph.
func (m *Memory) DestroyLoopback(module uint32) error {
	lb, ok := m.loopbacks[module]
	if !ok {
		return fmt.Errorf("%w: loopback %d", ErrNoSuchObject, module)
	}
	delete(m.streams, lb.Stream)
	delete(m.loopbacks, module)
	m.command("destroy_loopback", map[string]any{"module": module})
	return nil
}

// SetClassVolumeLimit implements Graph.
func (m *Memory) SetClassVolumeLimit(device uint32, class string, limitDB float64) error {
	if _, ok := m.devices[device]; !ok {
		if _, ok := m.combines[device]; !ok {
			return fmt.Errorf("%w: device %d", ErrNoSuchObject, device)
		}
	}
	if m.limits[device][class] == limitDB {
		return nil
	}
	if limitDB == 0 {
		delete(m.limits[device], class)
	} else {
		if m.limits[device] == nil {
			m.limits[device] = make(map[string]float64)
		}
		m.limits[device][class] = limitDB
	}
	m.command("set_volume_limit", map[string]any{"device": m.objectName(device), "class": class, "limit_db": limitDB})
	return nil
}

// VolumeLimit returns the attenuation of class on device, 0 when none.
func (m *Memory) VolumeLimit(device uint32, class string) float64 {
	return m.limits[device][class]
}

// Card returns a copy of a card.
func (m *Memory) Card(index uint32) (Card, bool) {
	c, ok := m.cards[index]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// CardByName returns a copy of the named card.
func (m *Memory) CardByName(name string) (Card, bool) {
	for _, c := range m.cards {
		if c.Name == name {
			return *c, true
		}
	}
	return Card{}, false
}

// Cards returns copies of all cards ordered by index.
func (m *Memory) Cards() []Card {
	out := make([]Card, 0, len(m.cards))
	for _, c := range m.cards {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Card) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// Device returns a copy of a device.
func (m *Memory) Device(index uint32) (Device, bool) {
	d, ok := m.devices[index]
	if !ok {
		return Device{}, false
	}
	out := *d
	out.Ports = slices.Clone(d.Ports)
	return out, true
}

// Stream returns a copy of a stream.
func (m *Memory) Stream(index uint32) (Stream, bool) {
	s, ok := m.streams[index]
	if !ok {
		return Stream{}, false
	}
	return *s, true
}

// StreamByName returns a copy of the named application stream.
func (m *Memory) StreamByName(name string) (Stream, bool) {
	for _, s := range m.streams {
		if s.Name == name && !s.Internal {
			return *s, true
		}
	}
	return Stream{}, false
}

// Combine returns a copy of a combine sink.
func (m *Memory) Combine(index uint32) (Combine, bool) {
	cb, ok := m.combines[index]
	if !ok {
		return Combine{}, false
	}
	out := *cb
	out.Slaves = slices.Clone(cb.Slaves)
	return out, true
}

// Loopback returns a copy of a loopback.
func (m *Memory) Loopback(module uint32) (Loopback, bool) {
	lb, ok := m.loopbacks[module]
	if !ok {
		return Loopback{}, false
	}
	return *lb, true
}

// Devices returns copies of all devices ordered by index.
func (m *Memory) Devices() []Device {
	var out []Device
	for _, d := range m.sortedDevices() {
		dev, _ := m.Device(d.Index)
		out = append(out, dev)
	}
	return out
}

// Streams returns copies of all streams ordered by index.
func (m *Memory) Streams() []Stream {
	out := make([]Stream, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Stream) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// CombineCount returns the number of live combine sinks.
func (m *Memory) CombineCount() int { return len(m.combines) }

// LoopbackCount returns the number of live loopbacks.
func (m *Memory) LoopbackCount() int { return len(m.loopbacks) }

func (m *Memory) device(dir node.Direction, index uint32) (*Device, error) {
	d, ok := m.devices[index]
	if !ok {
		return nil, fmt.Errorf("%w: device %d", ErrNoSuchObject, index)
	}
	if d.Direction != dir {
		return nil, fmt.Errorf("%w: %s is an %s device", ErrDirectionMismatch, d.Name, d.Direction)
	}
	return d, nil
}

func (m *Memory) checkSinks(slaves []uint32) error {
	for _, idx := range slaves {
		if _, err := m.device(node.Output, idx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) sortedDevices() []*Device {
	out := slices.Collect(maps.Values(m.devices))
	slices.SortFunc(out, func(a, b *Device) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

func (m *Memory) objectName(index uint32) string {
	if d, ok := m.devices[index]; ok {
		return d.Name
	}
	if cb, ok := m.combines[index]; ok {
		return cb.Name
	}
	return fmt.Sprint(index)
}

func (m *Memory) names(indexes []uint32) []string {
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = m.objectName(idx)
	}
	return out
}

func findProfile(profiles []Profile, name string) *Profile {
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i]
		}
	}
	return nil
}

func firstAvailablePort(ports []Port) string {
	for _, p := range ports {
		if p.Available {
			return p.Name
		}
	}
	if len(ports) > 0 {
		return ports[0].Name
	}
	return ""
}
