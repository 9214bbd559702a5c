package mqtt

import (
	"context"
	"sync"
)

// defaultOutboxSize bounds the messages waiting to be published.
const defaultOutboxSize = 256

// JSONPublisher is the part of Client an Outbox publishes through.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

type outboxMessage struct {
	topic    string
	v        any
	retained bool
}

// Outbox publishes JSON messages from a goroutine of its own, so the main
// loop never waits on the broker. Messages queued while the outbox is
// full are dropped and logged.
type Outbox struct {
	pub    JSONPublisher
	queue  chan outboxMessage
	logger Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewOutbox creates an outbox publishing through pub. size <= 0 selects
// the default queue length.
func NewOutbox(pub JSONPublisher, size int) *Outbox {
	if size <= 0 {
		size = defaultOutboxSize
	}
	return &Outbox{
		pub:   pub,
		queue: make(chan outboxMessage, size),
	}
}

// SetLogger sets the logger for publish failures.
func (o *Outbox) SetLogger(logger Logger) {
	o.logger = logger
}

// Start launches the publishing goroutine.
func (o *Outbox) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.wg.Add(1)
	go o.run(ctx)
}

// Stop ends the publishing goroutine after the queued messages are sent.
func (o *Outbox) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
}

// Enqueue queues v for topic. It never blocks, and drops the message
// once the outbox is stopped.
func (o *Outbox) Enqueue(topic string, v any, retained bool) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return false
	}
	select {
	case o.queue <- outboxMessage{topic: topic, v: v, retained: retained}:
		return true
	default:
		if o.logger != nil {
			o.logger.Warn("mqtt outbox full, message dropped", "topic", topic)
		}
		return false
	}
}

func (o *Outbox) run(ctx context.Context) {
	defer o.wg.Done()
	for msg := range o.queue {
		if ctx.Err() != nil {
			continue
		}
		if err := o.pub.PublishJSON(msg.topic, msg.v, msg.retained); err != nil && o.logger != nil {
			o.logger.Error("mqtt publish failed", "topic", msg.topic, "error", err)
		}
	}
}
