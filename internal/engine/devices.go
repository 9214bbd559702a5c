package engine

import (
	"maps"
	"strings"

	"github.com/nerrad567/gray-logic-audio/internal/host"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/policy"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
	"github.com/nerrad567/gray-logic-audio/internal/zone"
)

// portConstraint names the constraint tying the port nodes of a device.
const portConstraint = "port"

// deviceDesc describes a device whether or not it is present on the host.
type deviceDesc struct {
	index       uint32
	dir         node.Direction
	name        string
	description string
	channels    int
	ports       []host.Port
	props       map[string]string
	card        host.Card
	profile     string
}

func isBluetoothCard(c host.Card) bool {
	return strings.HasPrefix(c.Name, "bluez_card.") || c.Props["device.bus"] == "bluetooth"
}

// cardAdded creates unmaterialized nodes for every profile of a Bluetooth
// card. Other cards get their nodes from device events.
func (e *Engine) cardAdded(index uint32) {
	c, ok := e.host.Card(index)
	if !ok || !isBluetoothCard(c) {
		return
	}
	for _, p := range c.Profiles {
		for _, spec := range p.Devices {
			dir, err := node.ParseDirection(spec.Direction)
			if err != nil {
				e.logger.Warn("skipping device with bad direction", "card", c.Name, "device", spec.Name, "error", err)
				continue
			}
			if len(e.deviceNodes(dir, spec.Name, c.Index)) > 0 {
				continue
			}
			d := deviceDesc{
				index:       node.InvalidIndex,
				dir:         dir,
				name:        spec.Name,
				description: spec.Description,
				channels:    spec.Channels,
				props:       spec.Props,
				card:        c,
				profile:     p.Name,
			}
			for _, ps := range spec.Ports {
				d.ports = append(d.ports, host.Port(ps))
			}
			e.createDevice(d)
		}
	}
}

func (e *Engine) cardRemoved(index uint32) {
	for _, n := range e.registry.List() {
		if n.Implement == node.Device && n.Card.Index == index {
			e.destroyDevice(n)
		}
	}
}

func (e *Engine) deviceAdded(index uint32) {
	dev, ok := e.host.Device(index)
	if !ok {
		return
	}
	c, _ := e.host.Card(dev.Card)

	existing := e.deviceNodes(dev.Direction, dev.Name, dev.Card)
	if len(existing) == 0 {
		e.createDevice(deviceDesc{
			index:       dev.Index,
			dir:         dev.Direction,
			name:        dev.Name,
			description: dev.Description,
			channels:    dev.Channels,
			ports:       dev.Ports,
			props:       dev.Props,
			card:        c,
			profile:     dev.Profile,
		})
		return
	}

	for _, n := range existing {
		available := portAvailable(dev.Ports, n.Port)
		if err := e.registry.Update(n.ID, func(m *node.Node) {
			m.PhysicalIndex = dev.Index
			m.Available = available
		}); err != nil {
			e.logger.Warn("materializing device node failed", "node", n.Key, "error", err)
			continue
		}
		e.logger.Debug("device node materialized", "node", n.Key, "index", dev.Index)
		if n.Bridged && n.Loop == node.InvalidIndex {
			e.createLoop(n)
		}
	}
}

// deviceRemoved unmaterializes the nodes of a device whose card is still
// present and may bring it back under another profile, and destroys the
// nodes of any other device.
func (e *Engine) deviceRemoved(dir node.Direction, name string, index uint32) {
	for _, n := range e.registry.FindByName(dir, name) {
		if n.Implement != node.Device || n.PhysicalIndex != index {
			continue
		}
		c, cardPresent := e.host.Card(n.Card.Index)
		if cardPresent && isBluetoothCard(c) {
			e.switcher.ScheduleDestroy(n)
			if err := e.registry.Update(n.ID, func(m *node.Node) {
				m.PhysicalIndex = node.InvalidIndex
				m.Loop = node.InvalidIndex
				m.Mux = node.InvalidIndex
			}); err != nil {
				e.logger.Warn("unmaterializing device node failed", "node", n.Key, "error", err)
			}
			continue
		}
		e.destroyDevice(n)
	}
}

func (e *Engine) portAvailability(ev host.Event) {
	for _, n := range e.registry.FindByName(ev.Direction, ev.Name) {
		if n.Implement != node.Device || n.Port != ev.Port {
			continue
		}
		if err := e.registry.Update(n.ID, func(m *node.Node) { m.Available = ev.Available }); err != nil {
			e.logger.Warn("updating port availability failed", "node", n.Key, "error", err)
		}
	}
}

// createDevice creates the nodes of one device: one per port, or a single
// node for a port-less or bridged device.
func (e *Engine) createDevice(d deviceDesc) {
	props := e.deviceProps(d)
	base := e.classify(node.Device, props)
	bridged := d.dir == node.Input && e.policy.Bridged(base.Type)

	if len(d.ports) == 0 || bridged {
		e.createDeviceNode(d, d.name, "", true, base, bridged)
		return
	}

	for _, p := range d.ports {
		portProps := maps.Clone(props)
		portProps[policy.PropDevicePort] = p.Name
		cls := e.classify(node.Device, portProps)

		key := d.name
		if len(d.ports) > 1 {
			key = d.name + ":" + p.Name
		}
		n := e.createDeviceNode(d, key, p.Name, p.Available, cls, false)
		if n != nil && len(d.ports) > 1 && e.policy.PortConstraints {
			e.linkPortConstraint(d.name, n)
		}
	}
}

func (e *Engine) createDeviceNode(d deviceDesc, key, port string, available bool, cls policy.Classification, bridged bool) *node.Node {
	n := node.New(key, d.dir, node.Device)
	n.Name = d.name
	n.Description = d.description
	n.Port = port
	n.Channels = d.channels
	if cls.Channels > 0 {
		n.Channels = cls.Channels
	}
	n.Type = cls.Type
	n.Privacy = cls.Privacy
	n.Location = cls.Location
	n.Zone = cls.Zone
	n.Ignore = cls.Ignore
	n.Available = available
	n.Bridged = bridged
	n.PhysicalIndex = d.index
	if d.card.Name != "" {
		n.Card = node.Card{Index: d.card.Index, Profile: d.profile}
	}

	created, err := e.registry.Create(n)
	if err != nil {
		e.logger.Warn("device node rejected", "key", key, "error", err)
		return nil
	}
	e.logger.Info("device node created", "node", created.Key, "type", created.Type,
		"zone", created.Zone, "materialized", created.Materialized())

	if created.Bridged && created.Materialized() {
		e.createLoop(created)
	}
	return created
}

// linkPortConstraint adds n to the port constraint of its device.
func (e *Engine) linkPortConstraint(deviceName string, n *node.Node) {
	c := e.router.Constraint(deviceName)
	if c == nil {
		var err error
		c, err = e.router.CreateConstraint(portConstraint, deviceName, routing.BlockOtherPorts)
		if err != nil {
			e.logger.Warn("port constraint rejected", "device", deviceName, "error", err)
			return
		}
	}
	if err := e.router.AddConstraintNode(c, n); err != nil {
		e.logger.Warn("linking port constraint failed", "node", n.Key, "error", err)
	}
}

func (e *Engine) createLoop(n *node.Node) {
	module, err := e.switcher.CreateLoop(n)
	if err != nil {
		e.logger.Warn("loopback creation failed", "node", n.Key, "error", err)
		return
	}
	if err := e.registry.Update(n.ID, func(m *node.Node) { m.Loop = module }); err != nil {
		e.logger.Warn("recording loopback failed", "node", n.Key, "error", err)
	}
}

func (e *Engine) destroyDevice(n *node.Node) {
	key, name := n.Key, n.Name
	e.switcher.ScheduleDestroy(n)
	if err := e.registry.Destroy(n.ID); err != nil {
		e.logger.Warn("destroying device node failed", "node", key, "error", err)
		return
	}
	if c := e.router.Constraint(name); c != nil && len(c.Nodes()) == 0 {
		e.router.DestroyConstraint(name)
	}
	e.logger.Info("device node destroyed", "node", key)
}

// deviceNodes returns the device nodes of the named device on card.
func (e *Engine) deviceNodes(dir node.Direction, name string, card uint32) []*node.Node {
	var out []*node.Node
	for _, n := range e.registry.FindByName(dir, name) {
		if n.Implement == node.Device && n.Card.Index == card {
			out = append(out, n)
		}
	}
	return out
}

func (e *Engine) deviceProps(d deviceDesc) map[string]string {
	props := make(map[string]string, len(d.props)+len(d.card.Props)+4)
	maps.Copy(props, d.card.Props)
	maps.Copy(props, d.props)
	props[policy.PropDirection] = d.dir.String()
	props[policy.PropDeviceName] = d.name
	if d.card.Name != "" {
		props[policy.PropCardName] = d.card.Name
		props[policy.PropCardProfile] = d.profile
	}
	return props
}

// classify runs the classifier and falls back to the default zone for a
// zone the policy does not declare.
func (e *Engine) classify(impl node.Implement, props map[string]string) policy.Classification {
	cls := e.classifier.Classify(impl, props)
	if !e.zones.Has(cls.Zone) {
		e.logger.Warn("classified into unknown zone", "zone", cls.Zone)
		cls.Zone = zone.Default
	}
	return cls
}

func portAvailable(ports []host.Port, name string) bool {
	if name == "" {
		return true
	}
	for _, p := range ports {
		if p.Name == name {
			return p.Available
		}
	}
	return false
}

// Rescan reconciles the device nodes with the host after a hotplug burst
// and requests a routing pass. Host events normally keep the two in step;
// Rescan catches cards and devices whose events were missed.
func (e *Engine) Rescan() {
	cards := make(map[uint32]bool)
	for _, c := range e.host.Cards() {
		cards[c.Index] = true
		e.cardAdded(c.Index)
	}

	devices := make(map[node.Direction]map[uint32]bool, 2)
	added := 0
	for _, d := range e.host.Devices() {
		if devices[d.Direction] == nil {
			devices[d.Direction] = make(map[uint32]bool)
		}
		devices[d.Direction][d.Index] = true
		if len(e.registry.FindByPhysical(d.Direction, node.Device, d.Index)) == 0 {
			e.deviceAdded(d.Index)
			added++
		}
	}

	removed := 0
	for _, listed := range e.registry.List() {
		// Removing one port node takes its siblings with it.
		n := e.registry.FindByIndex(listed.ID)
		if n == nil || n.Implement != node.Device {
			continue
		}
		switch {
		case n.Materialized() && !devices[n.Direction][n.PhysicalIndex]:
			e.deviceRemoved(n.Direction, n.Name, n.PhysicalIndex)
			removed++
		case n.Card.Index != node.InvalidIndex && !cards[n.Card.Index]:
			e.destroyDevice(n)
			removed++
		}
	}

	e.logger.Info("host rescanned", "cards", len(cards), "devices_added", added, "devices_removed", removed)
	e.RequestRouting()
}
