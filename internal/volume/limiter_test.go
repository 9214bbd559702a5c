package volume

import (
	"errors"
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

type limitCall struct {
	device  uint32
	class   string
	limitDB float64
}

type fakeGraph struct {
	calls []limitCall
	fail  map[uint32]bool
}

func (g *fakeGraph) SetClassVolumeLimit(device uint32, class string, limitDB float64) error {
	if g.fail[device] {
		return errors.New("no such device")
	}
	g.calls = append(g.calls, limitCall{device, class, limitDB})
	return nil
}

func (g *fakeGraph) take() []limitCall {
	out := g.calls
	g.calls = nil
	return out
}

func sink(idx uint32) *node.Node {
	n := node.New("sink", node.Output, node.Device)
	n.PhysicalIndex = idx
	return n
}

var testRules = []Rule{
	{Class: "player", When: []string{"navigator", "phone"}, LimitDB: -20},
	{Class: "player", When: []string{"phone"}, LimitDB: -40},
	{Class: "navigator", When: []string{"phone"}, LimitDB: -10},
}

func newTestLimiter(t *testing.T) (*Limiter, *fakeGraph) {
	t.Helper()
	g := &fakeGraph{fail: map[uint32]bool{}}
	l, err := NewLimiter(g, testRules)
	if err != nil {
		t.Fatalf("NewLimiter() error = %v", err)
	}
	return l, g
}

func TestNewLimiterRejects(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{"no class", Rule{When: []string{"phone"}, LimitDB: -10}},
		{"no trigger", Rule{Class: "player", LimitDB: -10}},
		{"positive limit", Rule{Class: "player", When: []string{"phone"}, LimitDB: 3}},
		{"zero limit", Rule{Class: "player", When: []string{"phone"}}},
		{"self trigger", Rule{Class: "player", When: []string{"player"}, LimitDB: -10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLimiter(&fakeGraph{}, []Rule{tt.rule}); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("NewLimiter() error = %v, want ErrInvalidRule", err)
			}
		})
	}
}

func TestCommitAppliesStrongestLimit(t *testing.T) {
	l, g := newTestLimiter(t)

	l.AddLimitingClass(sink(1), "player", 1)
	l.AddLimitingClass(sink(1), "navigator", 1)
	l.Commit(1)
	if got, want := g.take(), []limitCall{{1, "player", -20}}; !slices.Equal(got, want) {
		t.Fatalf("pass 1 calls = %v, want %v", got, want)
	}

	l.AddLimitingClass(sink(1), "player", 2)
	l.AddLimitingClass(sink(1), "navigator", 2)
	l.AddLimitingClass(sink(1), "phone", 2)
	l.Commit(2)
	want := []limitCall{{1, "navigator", -10}, {1, "player", -40}}
	if got := g.take(); !slices.Equal(got, want) {
		t.Fatalf("pass 2 calls = %v, want %v", got, want)
	}
}

func TestCommitOnlyPushesChanges(t *testing.T) {
	l, g := newTestLimiter(t)

	for stamp := uint64(1); stamp <= 2; stamp++ {
		l.AddLimitingClass(sink(1), "player", stamp)
		l.AddLimitingClass(sink(1), "navigator", stamp)
		l.Commit(stamp)
	}
	if got := len(g.take()); got != 1 {
		t.Errorf("host calls over two identical passes = %d, want 1", got)
	}
}

func TestCommitClearsStaleLimits(t *testing.T) {
	l, g := newTestLimiter(t)

	l.AddLimitingClass(sink(1), "player", 1)
	l.AddLimitingClass(sink(1), "phone", 1)
	l.AddLimitingClass(sink(2), "player", 1)
	l.Commit(1)
	g.take()

	// The phone call moved to device 2.
	l.AddLimitingClass(sink(1), "player", 2)
	l.AddLimitingClass(sink(2), "player", 2)
	l.AddLimitingClass(sink(2), "phone", 2)
	l.Commit(2)

	want := []limitCall{{1, "player", 0}, {2, "player", -40}}
	if got := g.take(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	applied := l.Applied()
	if _, ok := applied[1]; ok {
		t.Errorf("device 1 still limited: %v", applied)
	}
	if applied[2]["player"] != -40 {
		t.Errorf("device 2 limits = %v", applied[2])
	}
}

func TestStaleStampDiscarded(t *testing.T) {
	l, g := newTestLimiter(t)

	l.AddLimitingClass(sink(1), "player", 1)
	l.AddLimitingClass(sink(1), "phone", 1)
	// Pass 1 never commits; pass 2 routes only the player.
	l.AddLimitingClass(sink(1), "player", 2)
	l.Commit(2)

	if got := g.take(); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestUnmaterializedDeviceIgnored(t *testing.T) {
	l, g := newTestLimiter(t)
	ghost := sink(node.InvalidIndex)

	l.AddLimitingClass(ghost, "player", 1)
	l.AddLimitingClass(ghost, "phone", 1)
	l.Commit(1)

	if got := g.take(); len(got) != 0 {
		t.Errorf("calls = %v, want none", got)
	}
}

func TestFailedLimitRetried(t *testing.T) {
	l, g := newTestLimiter(t)
	g.fail[1] = true

	l.AddLimitingClass(sink(1), "player", 1)
	l.AddLimitingClass(sink(1), "phone", 1)
	l.Commit(1)
	if len(l.Applied()) != 0 {
		t.Fatalf("failed limit recorded as applied: %v", l.Applied())
	}

	g.fail[1] = false
	l.AddLimitingClass(sink(1), "player", 2)
	l.AddLimitingClass(sink(1), "phone", 2)
	l.Commit(2)
	if got, want := g.take(), []limitCall{{1, "player", -40}}; !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}
