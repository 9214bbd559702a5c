package engine

import (
	"fmt"

	"github.com/nerrad567/gray-logic-audio/internal/host"
	"github.com/nerrad567/gray-logic-audio/internal/mainloop"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/policy"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
	"github.com/nerrad567/gray-logic-audio/internal/switcher"
	"github.com/nerrad567/gray-logic-audio/internal/zone"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Host is the host graph as the engine sees it: the commands the router
// needs plus read access and event delivery.
type Host interface {
	host.Graph
	SetListener(fn func(host.Event))
	Cards() []host.Card
	Card(index uint32) (host.Card, bool)
	Device(index uint32) (host.Device, bool)
	Devices() []host.Device
	Stream(index uint32) (host.Stream, bool)
	Streams() []host.Stream
}

// Deps holds the collaborators of an Engine. All are required except
// Logger.
type Deps struct {
	Host     Host
	Registry *node.Registry
	Router   *routing.Router
	Switcher *switcher.Switcher
	Policy   *policy.Policy
	Zones    *zone.Table
	Loop     *mainloop.Loop
	Logger   Logger
}

// Engine keeps the registry in step with the host graph and drives
// routing passes.
//
// Thread Safety:
//   - Not safe for concurrent use. Every method runs on the main loop;
//     other goroutines reach it through mainloop.Loop.Post.
type Engine struct {
	host       Host
	registry   *node.Registry
	router     *routing.Router
	switcher   *switcher.Switcher
	policy     *policy.Policy
	classifier *policy.Classifier
	zones      *zone.Table
	loop       *mainloop.Loop
	logger     Logger

	// streams maps host stream indexes to their nodes.
	streams map[uint32]node.ID

	routingRequested bool
	passes           uint64
}

// New creates an Engine.
//
// Returns:
//   - *Engine: Engine ready to Start
//   - error: ErrMissingDependency, or a classifier compile error
func New(deps Deps) (*Engine, error) {
	switch {
	case deps.Host == nil:
		return nil, fmt.Errorf("%w: host", ErrMissingDependency)
	case deps.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case deps.Router == nil:
		return nil, fmt.Errorf("%w: router", ErrMissingDependency)
	case deps.Switcher == nil:
		return nil, fmt.Errorf("%w: switcher", ErrMissingDependency)
	case deps.Policy == nil:
		return nil, fmt.Errorf("%w: policy", ErrMissingDependency)
	case deps.Zones == nil:
		return nil, fmt.Errorf("%w: zones", ErrMissingDependency)
	case deps.Loop == nil:
		return nil, fmt.Errorf("%w: loop", ErrMissingDependency)
	}

	classifier, err := deps.Policy.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("compiling classifier: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Engine{
		host:       deps.Host,
		registry:   deps.Registry,
		router:     deps.Router,
		switcher:   deps.Switcher,
		policy:     deps.Policy,
		classifier: classifier,
		zones:      deps.Zones,
		loop:       deps.Loop,
		logger:     logger,
		streams:    make(map[uint32]node.ID),
	}, nil
}

// Start subscribes to host events, takes in everything the host already
// has and requests the first routing pass. Call it on the main loop, or
// before the loop runs.
func (e *Engine) Start() {
	e.host.SetListener(func(ev host.Event) {
		e.loop.Defer(func() { e.handle(ev) })
	})

	for _, c := range e.host.Cards() {
		e.cardAdded(c.Index)
	}
	for _, d := range e.host.Devices() {
		e.deviceAdded(d.Index)
	}
	for _, s := range e.host.Streams() {
		if !s.Internal {
			e.streamAdded(s.Index)
		}
	}

	e.logger.Info("engine started", "nodes", e.registry.Count())
	e.RequestRouting()
}

// RequestRouting schedules a full routing pass for the next iteration.
// Requests made before it runs are merged into it.
func (e *Engine) RequestRouting() {
	if e.routingRequested {
		return
	}
	e.routingRequested = true
	e.loop.Defer(func() {
		e.routingRequested = false
		if rep := e.router.MakeRouting(); rep != nil {
			e.passes++
		}
	})
}

// Passes returns the number of full passes the engine has run.
func (e *Engine) Passes() uint64 {
	return e.passes
}

// Connect adds the explicit connection id from one node to another.
func (e *Engine) Connect(id uint32, from, to node.ID) error {
	if err := e.router.AddExplicitRoute(id, from, to); err != nil {
		return err
	}
	e.logger.Info("explicit route connected", "connection", id, "from", from, "to", to)
	return nil
}

// Disconnect removes the explicit connection id.
func (e *Engine) Disconnect(id uint32) error {
	if err := e.router.RemoveExplicitRoute(id); err != nil {
		return err
	}
	e.logger.Info("explicit route disconnected", "connection", id)
	return nil
}

func (e *Engine) handle(ev host.Event) {
	e.logger.Debug("host event", "kind", ev.Kind, "index", ev.Index, "name", ev.Name)

	switch ev.Kind {
	case host.EventCardAdded:
		e.cardAdded(ev.Index)
	case host.EventCardRemoved:
		e.cardRemoved(ev.Index)
	case host.EventCardProfileChanged:
		// The device events of the switch carry the node changes.
	case host.EventDeviceAdded:
		e.deviceAdded(ev.Index)
	case host.EventDeviceRemoved:
		e.deviceRemoved(ev.Direction, ev.Name, ev.Index)
	case host.EventPortChanged:
		// A port switched behind the policy's back is undone by the next pass.
	case host.EventPortAvailability:
		e.portAvailability(ev)
	case host.EventStreamAdded:
		e.streamAdded(ev.Index)
	case host.EventStreamRemoved:
		e.streamRemoved(ev.Index)
	default:
		e.logger.Warn("unknown host event", "kind", ev.Kind)
		return
	}
	e.RequestRouting()
}
