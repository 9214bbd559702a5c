package resmgr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

type fakeConnector struct {
	connectErr    error
	disconnectErr error
	connected     map[uint32][2]node.ID
}

func (c *fakeConnector) Connect(id uint32, from, to node.ID) error {
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected[id] = [2]node.ID{from, to}
	return nil
}

func (c *fakeConnector) Disconnect(id uint32) error {
	if c.disconnectErr != nil {
		return c.disconnectErr
	}
	delete(c.connected, id)
	return nil
}

// queueLoop holds posted work until run is called.
type queueLoop struct {
	fns []func()
}

func (l *queueLoop) Post(fn func()) { l.fns = append(l.fns, fn) }

func (l *queueLoop) run() {
	fns := l.fns
	l.fns = nil
	for _, fn := range fns {
		fn()
	}
}

type published struct {
	topic string
	v     any
}

type recordingOutbox struct {
	msgs []published
}

func (o *recordingOutbox) Enqueue(topic string, v any, _ bool) bool {
	o.msgs = append(o.msgs, published{topic, v})
	return true
}

type fakeSubscriber struct {
	handlers map[string]mqtt.MessageHandler
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	s.handlers[topic] = h
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topic string) error {
	delete(s.handlers, topic)
	return nil
}

func newTestBridge() (*Bridge, *fakeConnector, *queueLoop, *recordingOutbox) {
	conn := &fakeConnector{connected: map[uint32][2]node.ID{}}
	loop := &queueLoop{}
	out := &recordingOutbox{}
	return New(conn, loop, out), conn, loop, out
}

func TestRequestFlow(t *testing.T) {
	b, conn, loop, out := newTestBridge()
	sub := &fakeSubscriber{handlers: map[string]mqtt.MessageHandler{}}
	if err := b.Start(sub, 1); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := sub.handlers[mqtt.Topics{}.ResmgrRequest()]
	if handler == nil {
		t.Fatal("request topic not subscribed")
	}

	payload := []byte(`{"op":"connect","handle":12,"connection_id":3,"source_id":7,"sink_id":2}`)
	if err := handler("graylogic/audio/resmgr/request", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(conn.connected) != 0 {
		t.Fatal("request executed on the MQTT goroutine")
	}

	loop.run()
	if got := conn.connected[3]; got != [2]node.ID{7, 2} {
		t.Errorf("connection 3 = %v, want 7 -> 2", got)
	}
	if len(out.msgs) != 1 || out.msgs[0].topic != "graylogic/audio/resmgr/ack/12" {
		t.Fatalf("published = %+v", out.msgs)
	}
	ack := out.msgs[0].v.(Ack)
	if ack.Status != StatusOK || ack.ID == "" {
		t.Errorf("ack = %+v", ack)
	}

	if err := b.Stop(sub); err != nil || len(sub.handlers) != 0 {
		t.Errorf("Stop() error = %v, handlers = %d", err, len(sub.handlers))
	}
}

func TestHandlerRejectsBadPayload(t *testing.T) {
	b, _, loop, _ := newTestBridge()

	for _, payload := range []string{`not json`, `{"op":"connect"}`} {
		if err := b.handleMessage("t", []byte(payload)); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("handleMessage(%s) error = %v, want ErrInvalidRequest", payload, err)
		}
	}
	if len(loop.fns) != 0 {
		t.Error("bad request reached the main loop")
	}
}

func TestHandleStatus(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		err  error
		want Status
	}{
		{"ok", Request{Op: OpConnect, Handle: 1}, nil, StatusOK},
		{"exists", Request{Op: OpConnect, Handle: 1}, fmt.Errorf("wrapped: %w", routing.ErrConnectionExists), StatusAlreadyExists},
		{"missing node", Request{Op: OpConnect, Handle: 1}, fmt.Errorf("source: %w", node.ErrNodeNotFound), StatusNonExistent},
		{"not possible", Request{Op: OpConnect, Handle: 1}, routing.ErrInvalidRoute, StatusNotPossible},
		{"other failure", Request{Op: OpConnect, Handle: 1}, errors.New("boom"), StatusUnknown},
		{"missing connection", Request{Op: OpDisconnect, Handle: 1}, routing.ErrConnectionNotFound, StatusNonExistent},
		{"unknown op", Request{Op: "mute", Handle: 1}, nil, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, conn, _, out := newTestBridge()
			conn.connectErr = tt.err
			conn.disconnectErr = tt.err

			ack := b.Handle(tt.req)
			if ack.Status != tt.want {
				t.Errorf("status = %s, want %s", ack.Status, tt.want)
			}
			if (ack.Error != "") != (tt.want != StatusOK) {
				t.Errorf("error text = %q for status %s", ack.Error, ack.Status)
			}
			if len(out.msgs) != 1 {
				t.Errorf("published %d acks, want 1", len(out.msgs))
			}
		})
	}
}

func TestRoutingPassPublishesDefaultRoutes(t *testing.T) {
	b, _, _, out := newTestBridge()

	b.RoutingPass(&routing.Report{
		Kind:  routing.PassFull,
		Stamp: 4,
		Added: []routing.Route{
			{Source: 1, Sink: 2, SourceKey: "music", SinkKey: "speaker"},
			{Source: 1, Sink: 3, Explicit: true, ConnectionID: 9},
		},
		Removed: []routing.Route{{Source: 5, Sink: 2}},
	})

	if len(out.msgs) != 1 || out.msgs[0].topic != "graylogic/audio/resmgr/routes" {
		t.Fatalf("published = %+v", out.msgs)
	}
	batch := out.msgs[0].v.(RouteBatch)
	if batch.Stamp != 4 || len(batch.Added) != 1 || len(batch.Removed) != 1 {
		t.Errorf("batch = %+v", batch)
	}
	if batch.Added[0].SinkKey != "speaker" {
		t.Errorf("added = %+v", batch.Added)
	}
}

func TestRoutingPassSkipsQuietPasses(t *testing.T) {
	b, _, _, out := newTestBridge()

	b.RoutingPass(&routing.Report{Kind: routing.PassFull, Stamp: 1})
	b.RoutingPass(&routing.Report{Kind: routing.PassPreroute, Stamp: 2})
	b.RoutingPass(&routing.Report{Kind: routing.PassFull, Stamp: 3,
		Added: []routing.Route{{Source: 1, Sink: 2, Explicit: true}}})

	if len(out.msgs) != 0 {
		t.Errorf("published = %+v, want nothing", out.msgs)
	}
}

func TestRoutingPassPublishesPreroutes(t *testing.T) {
	b, _, _, out := newTestBridge()

	b.RoutingPass(&routing.Report{Kind: routing.PassPreroute, Stamp: 2,
		Added:   []routing.Route{{Source: 4, Sink: 2, SourceKey: "nav", SinkKey: "speaker"}},
		Removed: []routing.Route{{Source: 4, Sink: 3}}})

	if len(out.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(out.msgs))
	}
	batch := out.msgs[0].v.(RouteBatch)
	if batch.Kind != string(routing.PassPreroute) || len(batch.Added) != 1 || len(batch.Removed) != 1 {
		t.Errorf("batch = %+v", batch)
	}
}
