// Package mainloop runs the single goroutine that owns all routing state.
//
// The node registry, the router and the switcher are not safe for
// concurrent use. Every other goroutine (MQTT handlers, HTTP handlers,
// the udev monitor) hands work to the loop with Post or Call.
//
// Defer schedules a callback for the next iteration. Card and profile
// changes, routing requests and the teardown of combine sinks and
// loopbacks use it so that they never run while the caller that caused
// them is still on the stack. A deferred callback must re-look-up its
// target by stable ID; the target may be gone by then.
package mainloop

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger defines the logging interface used by the Loop.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Loop is a cooperative single-goroutine task loop.
type Loop struct {
	mu       sync.Mutex
	posted   []func()
	deferred []func()
	wake     chan struct{}
	logger   Logger
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used to report a panicking task before the
// panic is re-raised.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// Post queues fn to run on the loop. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.signal()
}

// Defer queues fn for the next iteration. Callbacks deferred while a
// deferred round runs go to the round after it.
func (l *Loop) Defer(fn func()) {
	l.mu.Lock()
	l.deferred = append(l.deferred, fn)
	l.mu.Unlock()
	l.signal()
}

// Call states.
const (
	callQueued int32 = iota
	callStarted
	callAbandoned
)

// Call runs fn on the loop and waits for it to finish.
//
// Call is all or nothing: when it returns an error fn has not run and
// never will, and when it returns nil fn has run to completion. A
// context that ends while fn is already running does not interrupt it.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	var state atomic.Int32
	done := make(chan struct{})
	l.Post(func() {
		if !state.CompareAndSwap(callQueued, callStarted) {
			return
		}
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(callQueued, callAbandoned) {
			return fmt.Errorf("mainloop call: %w", ctx.Err())
		}
		<-done
		return nil
	}
}

// Run processes iterations until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for l.Step() {
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Step runs one iteration: the posted tasks, then the callbacks deferred
// before the iteration started. It reports whether more work is pending.
func (l *Loop) Step() bool {
	l.mu.Lock()
	posted := l.posted
	deferred := l.deferred
	l.posted = nil
	l.deferred = nil
	l.mu.Unlock()

	for _, fn := range posted {
		l.run(fn)
	}
	for _, fn := range deferred {
		l.run(fn)
	}

	return l.Pending()
}

// Drain runs iterations until nothing is pending, at most limit of them.
// It returns the number of iterations run.
func (l *Loop) Drain(limit int) int {
	n := 0
	for n < limit && l.Pending() {
		l.Step()
		n++
	}
	return n
}

// Pending reports whether any task or deferred callback is queued.
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posted) > 0 || len(l.deferred) > 0
}

// run executes one task. A panic is logged and re-raised: the loop owns
// the registry and the router, so a task that died halfway leaves state
// nothing else can trust.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("mainloop task panicked", "panic", fmt.Sprint(r))
			panic(r)
		}
	}()
	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
