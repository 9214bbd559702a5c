package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-audio/internal/routing"

	_ "github.com/nerrad567/gray-logic-audio/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func speakerRoute() routing.Route {
	return routing.Route{
		Source: 7, Sink: 2,
		SourceKey: "player.music", SinkKey: "alsa_output.analog:speaker",
		Class: "player", Zone: "default",
	}
}

func phoneRoute() routing.Route {
	return routing.Route{
		Source: 9, Sink: 4,
		SourceKey: "phone.call", SinkKey: "bluez_output.00_11",
		Class: "phone", Zone: "default",
		Explicit: true, ConnectionID: 3,
	}
}

func TestRecordPassAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &routing.Report{Kind: routing.PassFull, Stamp: 1, Routed: 1, Added: []routing.Route{speakerRoute()}}
	second := &routing.Report{
		Kind: routing.PassFull, Stamp: 2, Routed: 0, Explicit: 1,
		Added:   []routing.Route{phoneRoute()},
		Removed: []routing.Route{speakerRoute()},
	}
	if err := repo.RecordPass(ctx, first, base); err != nil {
		t.Fatalf("RecordPass(first) error = %v", err)
	}
	if err := repo.RecordPass(ctx, second, base.Add(time.Millisecond)); err != nil {
		t.Fatalf("RecordPass(second) error = %v", err)
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 || len(res.Entries) != 3 {
		t.Fatalf("List() total = %d, entries = %d, want 3", res.Total, len(res.Entries))
	}
	if res.Limit != defaultHistoryLimit {
		t.Errorf("Limit = %d, want %d", res.Limit, defaultHistoryLimit)
	}

	wantKinds := []Kind{KindExplicitConnected, KindDefaultRemoved, KindDefaultAdded}
	for i, want := range wantKinds {
		if res.Entries[i].Kind != want {
			t.Errorf("Entries[%d].Kind = %q, want %q", i, res.Entries[i].Kind, want)
		}
	}

	got := res.Entries[0]
	if got.ID == "" {
		t.Error("entry ID is empty")
	}
	if got.Stamp != 2 || got.SourceID != 9 || got.SinkID != 4 {
		t.Errorf("entry = stamp %d %d->%d, want stamp 2 9->4", got.Stamp, got.SourceID, got.SinkID)
	}
	if got.ConnectionID != 3 || got.Class != "phone" || got.Zone != "default" {
		t.Errorf("entry = conn %d class %q zone %q", got.ConnectionID, got.Class, got.Zone)
	}
	if !got.CreatedAt.Equal(base.Add(time.Millisecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base.Add(time.Millisecond))
	}
	if res.Entries[2].ConnectionID != 0 {
		t.Errorf("default route ConnectionID = %d, want 0", res.Entries[2].ConnectionID)
	}
}

func TestListFilters(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	rep := &routing.Report{
		Kind:    routing.PassFull,
		Stamp:   5,
		Added:   []routing.Route{speakerRoute(), phoneRoute()},
		Removed: []routing.Route{speakerRoute()},
	}
	if err := repo.RecordPass(ctx, rep, now); err != nil {
		t.Fatalf("RecordPass() error = %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		total  int
	}{
		{"no filter", Filter{}, 3},
		{"kind", Filter{Kind: KindDefaultAdded}, 1},
		{"source key", Filter{Key: "player.music"}, 2},
		{"sink key", Filter{Key: "bluez_output.00_11"}, 1},
		{"class", Filter{Class: "phone"}, 1},
		{"zone", Filter{Zone: "default"}, 3},
		{"combined", Filter{Key: "player.music", Kind: KindDefaultRemoved}, 1},
		{"no match", Filter{Key: "nothing"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.total || len(res.Entries) != tt.total {
				t.Errorf("List() total = %d, entries = %d, want %d", res.Total, len(res.Entries), tt.total)
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := range 5 {
		rep := &routing.Report{Kind: routing.PassFull, Stamp: uint64(i + 1), Added: []routing.Route{speakerRoute()}}
		if err := repo.RecordPass(ctx, rep, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("RecordPass(%d) error = %v", i, err)
		}
	}

	res, err := repo.List(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].Stamp != 4 || res.Entries[1].Stamp != 3 {
		t.Errorf("stamps = %d, %d, want 4, 3", res.Entries[0].Stamp, res.Entries[1].Stamp)
	}

	res, err = repo.List(ctx, Filter{Limit: 1000, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxHistoryLimit || res.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d, want %d/0", res.Limit, res.Offset, maxHistoryLimit)
	}
}

func TestListPasses(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	reps := []*routing.Report{
		{Kind: routing.PassPreroute, Stamp: 1},
		{Kind: routing.PassFull, Stamp: 2, Routed: 3, Unroutable: 1, Explicit: 1, Duration: 250 * time.Microsecond},
	}
	for i, rep := range reps {
		if err := repo.RecordPass(ctx, rep, now.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("RecordPass() error = %v", err)
		}
	}

	passes, err := repo.ListPasses(ctx, 0)
	if err != nil {
		t.Fatalf("ListPasses() error = %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("len(passes) = %d, want 2", len(passes))
	}
	got := passes[0]
	if got.Kind != routing.PassFull || got.Stamp != 2 {
		t.Errorf("newest pass = %s/%d, want full/2", got.Kind, got.Stamp)
	}
	if got.Routed != 3 || got.Unroutable != 1 || got.Explicit != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/1/1", got.Routed, got.Unroutable, got.Explicit)
	}
	if got.Duration != 250*time.Microsecond {
		t.Errorf("Duration = %v, want 250µs", got.Duration)
	}
}

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	old := &routing.Report{Kind: routing.PassFull, Stamp: 1, Added: []routing.Route{speakerRoute()}}
	fresh := &routing.Report{Kind: routing.PassFull, Stamp: 2, Added: []routing.Route{phoneRoute()}}
	if err := repo.RecordPass(ctx, old, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("RecordPass(old) error = %v", err)
	}
	if err := repo.RecordPass(ctx, fresh, time.Now()); err != nil {
		t.Fatalf("RecordPass(fresh) error = %v", err)
	}

	deleted, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	// One route change and one pass.
	if deleted != 2 {
		t.Errorf("Prune() deleted = %d, want 2", deleted)
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || res.Entries[0].Stamp != 2 {
		t.Errorf("remaining = %+v, want the stamp 2 entry", res.Entries)
	}

	if _, err := repo.Prune(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Prune(0) error = %v, want ErrInvalidRetention", err)
	}
}

func TestKindIsValid(t *testing.T) {
	for _, k := range ValidKinds {
		if !k.IsValid() {
			t.Errorf("%q.IsValid() = false", k)
		}
	}
	if Kind("default_moved").IsValid() {
		t.Error("unknown kind reported valid")
	}
}
