package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

type memoryStore struct {
	mu    sync.Mutex
	reps  []routing.Report
	fail  error
	block chan struct{}
}

func (s *memoryStore) RecordPass(_ context.Context, rep *routing.Report, _ time.Time) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.reps = append(s.reps, *rep)
	return nil
}

func (s *memoryStore) recorded() []routing.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]routing.Report(nil), s.reps...)
}

type countingLogger struct {
	mu     sync.Mutex
	warns  int
	errors int
}

func (l *countingLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func (l *countingLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func TestRecorderWritesPasses(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, 0)
	rec.Start(context.Background())

	added := []routing.Route{speakerRoute()}
	rec.RoutingPass(&routing.Report{Kind: routing.PassPreroute, Stamp: 1})
	rec.RoutingPass(&routing.Report{Kind: routing.PassFull, Stamp: 2, Added: added})
	rec.RoutingPass(&routing.Report{Kind: routing.PassPreroute, Stamp: 3, Removed: []routing.Route{speakerRoute()}})
	added[0].SinkKey = "changed after the pass"
	rec.Stop()

	got := store.recorded()
	if len(got) != 2 {
		t.Fatalf("recorded %d passes, want 2", len(got))
	}
	if got[0].Stamp != 2 || got[1].Stamp != 3 {
		t.Errorf("recorded stamps = %d, %d, want 2, 3", got[0].Stamp, got[1].Stamp)
	}
	if got[0].Added[0].SinkKey != "alsa_output.analog:speaker" {
		t.Errorf("recorded sink = %q, report was not copied", got[0].Added[0].SinkKey)
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	store := &memoryStore{block: make(chan struct{})}
	logger := &countingLogger{}
	rec := NewRecorder(store, 1)
	rec.SetLogger(logger)

	// Not started: the queue holds exactly one pass.
	if err := rec.enqueue(&routing.Report{Kind: routing.PassFull, Stamp: 1}); err != nil {
		t.Fatalf("first enqueue error = %v", err)
	}
	if err := rec.enqueue(&routing.Report{Kind: routing.PassFull, Stamp: 2}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second enqueue error = %v, want ErrQueueFull", err)
	}
	rec.RoutingPass(&routing.Report{Kind: routing.PassFull, Stamp: 3})
	if logger.warns != 1 {
		t.Errorf("warns = %d, want 1", logger.warns)
	}

	close(store.block)
	rec.Start(context.Background())
	rec.Stop()
	if got := store.recorded(); len(got) != 1 || got[0].Stamp != 1 {
		t.Errorf("recorded = %+v, want only stamp 1", got)
	}
}

func TestRecorderStop(t *testing.T) {
	store := &memoryStore{}
	rec := NewRecorder(store, 4)
	rec.Start(context.Background())
	rec.Stop()
	rec.Stop()

	if err := rec.enqueue(&routing.Report{Kind: routing.PassFull}); !errors.Is(err, ErrRecorderStopped) {
		t.Errorf("enqueue after Stop error = %v, want ErrRecorderStopped", err)
	}
}

func TestRecorderLogsStoreErrors(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	logger := &countingLogger{}
	rec := NewRecorder(store, 4)
	rec.SetLogger(logger)
	rec.Start(context.Background())

	rec.RoutingPass(&routing.Report{Kind: routing.PassFull, Stamp: 1})
	rec.Stop()

	if logger.errors != 1 {
		t.Errorf("errors = %d, want 1", logger.errors)
	}
}

func TestRecorderWithSQLite(t *testing.T) {
	repo := openTestRepo(t)
	rec := NewRecorder(repo, 0)
	rec.Start(context.Background())

	rec.RoutingPass(&routing.Report{
		Kind:    routing.PassFull,
		Stamp:   1,
		Added:   []routing.Route{phoneRoute()},
		Removed: []routing.Route{speakerRoute()},
	})
	rec.Stop()

	res, err := repo.List(context.Background(), Filter{Kind: KindExplicitConnected})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || res.Entries[0].SourceKey != "phone.call" {
		t.Errorf("explicit entries = %+v", res.Entries)
	}
}
