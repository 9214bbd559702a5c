package routing

import (
	"errors"
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

func blockAll(_, _ *node.Node) bool  { return true }
func blockNone(_, _ *node.Node) bool { return false }

func TestCreateConstraint(t *testing.T) {
	f := newFixture(t)

	c, err := f.r.CreateConstraint("port", "alsa_output.pci", blockAll)
	if err != nil {
		t.Fatalf("CreateConstraint() error = %v", err)
	}

	again, err := f.r.CreateConstraint("port", "alsa_output.pci", blockAll)
	if err != nil || again != c {
		t.Errorf("repeated CreateConstraint() = %p, %v, want the existing definition", again, err)
	}

	tests := []struct {
		name    string
		cname   string
		key     string
		fn      ConstraintFunc
		wantErr error
	}{
		{"other name", "exclusive", "alsa_output.pci", blockAll, ErrConstraintConflict},
		{"other predicate", "port", "alsa_output.pci", blockNone, ErrConstraintConflict},
		{"empty key", "port", "", blockAll, ErrInvalidConstraint},
		{"nil predicate", "port", "k", nil, ErrInvalidConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.r.CreateConstraint(tt.cname, tt.key, tt.fn); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateConstraint() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddConstraintNodeRejects(t *testing.T) {
	f := newFixture(t)
	c, _ := f.r.CreateConstraint("port", "k", blockAll)
	s := f.stream(t, "s", "player", 1)

	if err := f.r.AddConstraintNode(c, s); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("AddConstraintNode(stream) error = %v, want ErrInvalidConstraint", err)
	}
	stray := node.New("stray", node.Output, node.Device)
	if err := f.r.AddConstraintNode(c, stray); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("AddConstraintNode(unregistered) error = %v, want ErrInvalidConstraint", err)
	}
	foreign := &Constraint{Key: "k"}
	if err := f.r.AddConstraintNode(foreign, f.speaker(t, "spk")); !errors.Is(err, ErrInvalidConstraint) {
		t.Errorf("AddConstraintNode(foreign) error = %v, want ErrInvalidConstraint", err)
	}
}

func TestApplyConstraintsBlocksEveryEntryOfCandidate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.r.CreateGroup(node.Output, "media", AcceptAll, DefaultCompare(nil)); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	spk := f.speaker(t, "speaker")
	hp := f.headphone(t, "headphones")

	c, _ := f.r.CreateConstraint("exclusive", "pair", func(cand, owner *node.Node) bool {
		return cand.ID != owner.ID
	})
	for _, n := range []*node.Node{spk, hp} {
		if err := f.r.AddConstraintNode(c, n); err != nil {
			t.Fatalf("AddConstraintNode() error = %v", err)
		}
	}

	f.r.ApplyConstraints(spk, 7)

	for _, g := range f.r.Groups(node.Output) {
		for _, e := range g.Entries() {
			if e.Stamp != 7 {
				t.Errorf("%s/%s stamp = %d, want 7", g.Name, e.Node.Key, e.Stamp)
			}
			if wantBlocked := e.Node == hp; e.Blocked != wantBlocked {
				t.Errorf("%s/%s blocked = %v, want %v", g.Name, e.Node.Key, e.Blocked, wantBlocked)
			}
		}
	}

	// The node itself is never touched.
	if !hp.Available {
		t.Error("ApplyConstraints changed the node")
	}
}

func TestApplyConstraintsStampsUnconstrainedOwner(t *testing.T) {
	f := newFixture(t)
	spk := f.speaker(t, "speaker")
	e := f.r.Group(node.Output, "default").Entries()[0]
	e.Blocked = true

	f.r.ApplyConstraints(spk, 3)

	if e.Stamp != 3 || e.Blocked {
		t.Errorf("entry = {blocked %v, stamp %d}, want {false, 3}", e.Blocked, e.Stamp)
	}
}

func TestConstraintEvaluatedOncePerStamp(t *testing.T) {
	f := newFixture(t)
	spk := f.speaker(t, "speaker")
	hp := f.headphone(t, "headphones")

	calls := 0
	c, _ := f.r.CreateConstraint("count", "pair", func(_, _ *node.Node) bool {
		calls++
		return false
	})
	_ = f.r.AddConstraintNode(c, spk)
	_ = f.r.AddConstraintNode(c, hp)

	f.stream(t, "a", "player", 1)
	f.stream(t, "b", "player", 2)
	f.stream(t, "c", "navigator", 3)

	f.pass(t)
	// One apply per pass, evaluating both members once.
	if calls != 2 {
		t.Errorf("predicate calls in first pass = %d, want 2", calls)
	}

	f.pass(t)
	if calls != 4 {
		t.Errorf("predicate calls after second pass = %d, want 4", calls)
	}
}

func TestConstraintBlockSurvivesLaterConstraint(t *testing.T) {
	f := newFixture(t)
	spk := f.speaker(t, "speaker")
	hp := f.headphone(t, "headphones")
	music := f.stream(t, "music", "player", 1)

	hpCalls := 0
	counted := func(block bool) ConstraintFunc {
		return func(cand, _ *node.Node) bool {
			if cand == hp {
				hpCalls++
				return block
			}
			return false
		}
	}
	first, _ := f.r.CreateConstraint("blocks-headphones", "first", counted(true))
	second, _ := f.r.CreateConstraint("allows-all", "second", counted(false))
	for _, c := range []*Constraint{first, second} {
		for _, n := range []*node.Node{hp, spk} {
			if err := f.r.AddConstraintNode(c, n); err != nil {
				t.Fatalf("AddConstraintNode() error = %v", err)
			}
		}
	}

	f.pass(t)

	if got := f.sinkOf(t, music); got != "speaker" {
		t.Errorf("music routed to %q, want speaker", got)
	}
	if hpCalls != 1 {
		t.Errorf("headphone evaluations in one pass = %d, want 1", hpCalls)
	}
	for _, e := range f.r.Group(node.Output, "default").Entries() {
		if wantBlocked := e.Node == hp; e.Blocked != wantBlocked {
			t.Errorf("%s blocked = %v, want %v", e.Node.Key, e.Blocked, wantBlocked)
		}
	}
}

func TestDestroyDeviceLeavesNoReferences(t *testing.T) {
	f := newFixture(t)
	if _, err := f.r.CreateGroup(node.Output, "media", AcceptAll, DefaultCompare(nil)); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	spk := f.speaker(t, "speaker")
	hp := f.headphone(t, "headphones")
	c, _ := f.r.CreateConstraint("port", "card0", blockNone)
	_ = f.r.AddConstraintNode(c, spk)
	_ = f.r.AddConstraintNode(c, hp)

	bridged := node.New("line-in", node.Input, node.Device)
	bridged.Bridged = true
	f.create(t, bridged)

	// Destroy panics if anything still refers to the node.
	f.destroy(t, hp)
	f.destroy(t, bridged)

	for _, g := range f.r.Groups(node.Output) {
		if g.Contains(hp.ID) {
			t.Errorf("group %s still lists the destroyed device", g.Name)
		}
	}
	if slices.Contains(c.Nodes(), hp.ID) {
		t.Error("constraint still lists the destroyed device")
	}
	if slices.Contains(f.r.PriorityList(), bridged.ID) {
		t.Error("priority list still lists the destroyed device")
	}
	if refs := f.r.References(hp.ID); len(refs) != 0 {
		t.Errorf("References() = %v, want none", refs)
	}
	if got := c.Nodes(); !slices.Equal(got, []node.ID{spk.ID}) {
		t.Errorf("constraint nodes = %v, want only the speaker", got)
	}
}

func TestDestroyConstraint(t *testing.T) {
	f := newFixture(t)
	spk := f.speaker(t, "speaker")
	c, _ := f.r.CreateConstraint("port", "card0", blockAll)
	_ = f.r.AddConstraintNode(c, spk)

	f.r.DestroyConstraint("card0")

	if f.r.Constraint("card0") != nil {
		t.Error("constraint still defined")
	}
	if refs := f.r.References(spk.ID); slices.Contains(refs, "constraint links") {
		t.Errorf("References() = %v after DestroyConstraint", refs)
	}
	if _, err := f.r.CreateConstraint("other", "card0", blockNone); err != nil {
		t.Errorf("key not released: %v", err)
	}
}
