package engine

import (
	"maps"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/policy"
)

// streamAdded creates the node of a new application stream. The node is
// previewed while still unmaterialized, then materialized and placed on
// the previewed device so that audio starts in the right place before the
// next full pass.
func (e *Engine) streamAdded(index uint32) {
	s, ok := e.host.Stream(index)
	if !ok || s.Internal {
		return
	}
	if _, known := e.streams[index]; known {
		return
	}

	props := maps.Clone(s.Props)
	if props == nil {
		props = make(map[string]string, 2)
	}
	props[policy.PropDirection] = s.Direction.String()
	props[policy.PropStreamName] = s.Name
	cls := e.classify(node.Stream, props)

	n := node.New(s.Name, s.Direction, node.Stream)
	n.Name = s.Name
	n.Type = cls.Type
	n.Zone = cls.Zone
	n.Privacy = cls.Privacy
	n.Location = cls.Location
	n.Channels = cls.Channels
	n.Ignore = cls.Ignore
	n.Priority = e.policy.Priority(cls.Type)

	created, err := e.registry.Create(n)
	if err != nil {
		e.logger.Warn("stream node rejected", "stream", s.Name, "error", err)
		return
	}
	e.streams[index] = created.ID

	target := e.router.MakePrerouting(created)

	if err := e.registry.Update(created.ID, func(m *node.Node) { m.PhysicalIndex = index }); err != nil {
		e.logger.Warn("materializing stream node failed", "stream", s.Name, "error", err)
		return
	}

	if s.Direction == node.Input && e.policy.Multiplexed(cls.Type) {
		combine, err := e.switcher.CreateMux(created)
		if err != nil {
			e.logger.Warn("mux creation failed", "stream", s.Name, "error", err)
		} else if err := e.registry.Update(created.ID, func(m *node.Node) { m.Mux = combine }); err != nil {
			e.logger.Warn("recording mux failed", "stream", s.Name, "error", err)
		}
	}

	preview := ""
	if target != nil && !created.Ignore {
		preview = target.Key
		from, to := created, target
		if created.Direction == node.Output {
			from, to = target, created
		}
		if err := e.switcher.SetupLink(from, to, false); err != nil {
			e.logger.Warn("initial placement failed", "stream", s.Name, "device", target.Key, "error", err)
		}
	}

	e.logger.Info("stream node created", "node", created.Key, "class", created.Type,
		"zone", created.Zone, "priority", created.Priority, "preview", preview)
}

func (e *Engine) streamRemoved(index uint32) {
	id, ok := e.streams[index]
	if !ok {
		return
	}
	delete(e.streams, index)

	n := e.registry.FindByIndex(id)
	if n == nil {
		return
	}
	key := n.Key
	e.switcher.ScheduleDestroy(n)
	if err := e.registry.Destroy(id); err != nil {
		e.logger.Warn("destroying stream node failed", "stream", key, "error", err)
		return
	}
	e.logger.Info("stream node destroyed", "node", key)
}
