package resmgr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

// Logger defines the logging interface used by the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Connector realises explicit connections.
type Connector interface {
	Connect(id uint32, from, to node.ID) error
	Disconnect(id uint32) error
}

// Poster hands work to the main loop.
type Poster interface {
	Post(fn func())
}

// Enqueuer publishes without blocking.
type Enqueuer interface {
	Enqueue(topic string, v any, retained bool) bool
}

// Subscriber is the part of mqtt.Client the bridge subscribes through.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Bridge exchanges connection requests and route batches with the
// resource manager.
type Bridge struct {
	conn   Connector
	loop   Poster
	out    Enqueuer
	topics mqtt.Topics
	logger Logger
}

// New creates a Bridge.
func New(conn Connector, loop Poster, out Enqueuer) *Bridge {
	return &Bridge{
		conn:   conn,
		loop:   loop,
		out:    out,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the request topic.
func (b *Bridge) Start(sub Subscriber, qos byte) error {
	if err := sub.Subscribe(b.topics.ResmgrRequest(), qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to resource manager requests: %w", err)
	}
	return nil
}

// Stop unsubscribes from the request topic.
func (b *Bridge) Stop(sub Subscriber) error {
	return sub.Unsubscribe(b.topics.ResmgrRequest())
}

// handleMessage runs on an MQTT goroutine.
func (b *Bridge) handleMessage(_ string, payload []byte) error {
	req, err := DecodeRequest(payload)
	if err != nil {
		return err
	}
	b.loop.Post(func() { b.Handle(req) })
	return nil
}

// Handle executes a request and publishes its acknowledgement. It must
// run on the main loop.
func (b *Bridge) Handle(req Request) Ack {
	var err error
	switch req.Op {
	case OpConnect:
		err = b.conn.Connect(req.ConnectionID, node.ID(req.SourceID), node.ID(req.SinkID))
	case OpDisconnect:
		err = b.conn.Disconnect(req.ConnectionID)
	default:
		err = fmt.Errorf("%w: op %q", ErrInvalidRequest, req.Op)
	}

	ack := Ack{
		ID:           uuid.NewString(),
		Handle:       req.Handle,
		ConnectionID: req.ConnectionID,
		Status:       statusOf(err),
	}
	if err != nil {
		ack.Error = err.Error()
		b.logger.Warn("resource manager request failed", "op", req.Op, "handle", req.Handle,
			"connection", req.ConnectionID, "status", ack.Status.String(), "error", err)
	} else {
		b.logger.Info("resource manager request done", "op", req.Op, "handle", req.Handle,
			"connection", req.ConnectionID)
	}

	b.out.Enqueue(b.topics.ResmgrAck(req.Handle), ack, false)
	return ack
}

// RoutingPass implements routing.Observer. Every pass that changes the
// default routes is published, prerouting included; explicit routes are
// the resource manager's own and are left out.
func (b *Bridge) RoutingPass(rep *routing.Report) {
	batch := RouteBatch{
		Stamp:   rep.Stamp,
		Kind:    string(rep.Kind),
		Added:   defaultRoutes(rep.Added),
		Removed: defaultRoutes(rep.Removed),
	}
	if len(batch.Added) == 0 && len(batch.Removed) == 0 {
		return
	}
	if !b.out.Enqueue(b.topics.ResmgrRoutes(), batch, false) {
		b.logger.Warn("route batch dropped", "stamp", rep.Stamp)
		return
	}
	b.logger.Debug("route batch published", "stamp", rep.Stamp,
		"added", len(batch.Added), "removed", len(batch.Removed))
}

func defaultRoutes(routes []routing.Route) []routing.Route {
	out := make([]routing.Route, 0, len(routes))
	for _, rt := range routes {
		if !rt.Explicit {
			out = append(out, rt)
		}
	}
	return out
}

func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, routing.ErrConnectionExists):
		return StatusAlreadyExists
	case errors.Is(err, node.ErrNodeNotFound), errors.Is(err, routing.ErrConnectionNotFound):
		return StatusNonExistent
	case errors.Is(err, routing.ErrInvalidRoute):
		return StatusNotPossible
	default:
		return StatusUnknown
	}
}
