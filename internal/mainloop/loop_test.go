package mainloop

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestDeferRunsNextIteration(t *testing.T) {
	l := New()
	var order []string

	l.Post(func() {
		order = append(order, "post")
		l.Defer(func() {
			order = append(order, "deferred")
			l.Defer(func() { order = append(order, "deferred again") })
		})
		order = append(order, "post done")
	})

	l.Step()
	if want := []string{"post", "post done"}; !slices.Equal(order, want) {
		t.Fatalf("after first step = %v, want %v", order, want)
	}
	l.Step()
	if order[len(order)-1] != "deferred" {
		t.Fatalf("after second step = %v", order)
	}
	if !l.Pending() {
		t.Fatal("nested defer not pending")
	}
	l.Step()
	if order[len(order)-1] != "deferred again" {
		t.Errorf("after third step = %v", order)
	}
	if l.Pending() {
		t.Error("work still pending")
	}
}

func TestDrain(t *testing.T) {
	l := New()
	count := 0
	var again func()
	again = func() {
		count++
		if count < 5 {
			l.Defer(again)
		}
	}
	l.Post(again)

	if n := l.Drain(100); n != 5 {
		t.Errorf("Drain() = %d iterations, want 5", n)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

type recordingLogger struct{ msgs []string }

func (r *recordingLogger) Error(msg string, _ ...any) { r.msgs = append(r.msgs, msg) }

func TestPanicPropagates(t *testing.T) {
	l := New()
	logger := &recordingLogger{}
	l.SetLogger(logger)
	l.Post(func() { panic("boom") })

	defer func() {
		r := recover()
		if r != "boom" {
			t.Errorf("recovered %v, want boom", r)
		}
		if len(logger.msgs) != 1 {
			t.Errorf("logged %v, want one panic message", logger.msgs)
		}
	}()
	l.Step()
	t.Fatal("Step() returned after a panicking task")
}

func TestRunAndCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	value := 0
	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	if err := l.Call(callCtx, func() { value = 42 }); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop")
	}
}

func TestCallHonoursContext(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Call(ctx, func() {}); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() error = %v, want context.Canceled", err)
	}
}

func TestCallAbandonedDoesNotRun(t *testing.T) {
	l := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	ran := false
	err := l.Call(ctx, func() { ran = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Call() error = %v, want context.DeadlineExceeded", err)
	}

	// The loop only gets to the task after the caller gave up.
	l.Drain(10)
	if ran {
		t.Error("abandoned call ran on the loop")
	}
}

func TestCallWaitsForStartedTask(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		<-started
		cancel()
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() { _ = l.Run(runCtx) }()

	finished := false
	err := l.Call(ctx, func() {
		close(started)
		<-release
		finished = true
	})
	if err != nil {
		t.Fatalf("Call() error = %v, want nil once the task started", err)
	}
	if !finished {
		t.Error("Call() returned before the task finished")
	}
}
