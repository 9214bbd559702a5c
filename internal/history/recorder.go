package history

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

const (
	// defaultQueueSize bounds the passes waiting to be written.
	defaultQueueSize = 128

	writeTimeout = 5 * time.Second
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store persists finished passes.
type Store interface {
	RecordPass(ctx context.Context, rep *routing.Report, at time.Time) error
}

type record struct {
	rep routing.Report
	at  time.Time
}

// Recorder is a routing.Observer writing passes to a Store from its own
// goroutine. Prerouting passes are recorded only when they rerouted
// something. Passes arriving while the queue is full are dropped and
// logged.
type Recorder struct {
	store  Store
	queue  chan record
	logger Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRecorder creates a recorder writing to store. size <= 0 selects the
// default queue length.
func NewRecorder(store Store, size int) *Recorder {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Recorder{
		store:  store,
		queue:  make(chan record, size),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the writing goroutine.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.run(ctx)
}

// Stop ends the writing goroutine after the queued passes are written.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
	if r.cancel != nil {
		r.cancel()
	}
}

// RoutingPass implements routing.Observer.
func (r *Recorder) RoutingPass(rep *routing.Report) {
	if rep.Kind != routing.PassFull && !rep.Changed() {
		return
	}
	if err := r.enqueue(rep); err != nil {
		r.logger.Warn("route history pass dropped", "stamp", rep.Stamp, "error", err)
	}
}

func (r *Recorder) enqueue(rep *routing.Report) error {
	rec := record{rep: *rep, at: time.Now()}
	rec.rep.Added = slices.Clone(rep.Added)
	rec.rep.Removed = slices.Clone(rep.Removed)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrRecorderStopped
	}
	select {
	case r.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for rec := range r.queue {
		if ctx.Err() != nil {
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := r.store.RecordPass(wctx, &rec.rep, rec.at)
		cancel()
		if err != nil {
			r.logger.Error("recording routing pass failed", "stamp", rec.rep.Stamp, "error", err)
		}
	}
}
