package routing

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

var errSwitch = errors.New("switch failed")

type linkCall struct {
	from, to string
	explicit bool
}

// fakeSwitcher records directives and keeps the last sink per source.
type fakeSwitcher struct {
	calls     []linkCall
	teardowns []linkCall
	current   map[string]string
	fail      map[string]bool
	onSetup   func()
}

func newFakeSwitcher() *fakeSwitcher {
	return &fakeSwitcher{current: make(map[string]string), fail: make(map[string]bool)}
}

func (s *fakeSwitcher) SetupLink(from, to *node.Node, explicit bool) error {
	if s.onSetup != nil {
		s.onSetup()
	}
	if s.fail[to.Key] || s.fail[from.Key] {
		return errSwitch
	}
	s.calls = append(s.calls, linkCall{from: from.Key, to: to.Key, explicit: explicit})
	s.current[from.Key] = to.Key
	return nil
}

func (s *fakeSwitcher) TeardownLink(from, to *node.Node) error {
	s.teardowns = append(s.teardowns, linkCall{from: from.Key, to: to.Key, explicit: true})
	return nil
}

func (s *fakeSwitcher) reset() {
	s.calls = nil
	s.teardowns = nil
}

type limitCall struct {
	device, class string
	stamp         uint64
}

type fakeLimiter struct {
	added     []limitCall
	committed []uint64
}

func (l *fakeLimiter) AddLimitingClass(device *node.Node, class string, stamp uint64) {
	l.added = append(l.added, limitCall{device: device.Key, class: class, stamp: stamp})
}

func (l *fakeLimiter) Commit(stamp uint64) {
	l.committed = append(l.committed, stamp)
}

type recordingObserver struct {
	reports []*Report
}

func (o *recordingObserver) RoutingPass(rep *Report) {
	o.reports = append(o.reports, rep)
}

type fixture struct {
	reg *node.Registry
	r   *Router
	sw  *fakeSwitcher
	vol *fakeLimiter
	obs *recordingObserver
}

// newFixture builds a router with an output group "default" ranked by
// DefaultCompare, and an input group "mics", both serving the default zone.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg: node.NewRegistry(),
		sw:  newFakeSwitcher(),
		vol: &fakeLimiter{},
		obs: &recordingObserver{},
	}
	f.r = NewRouter(f.reg, f.sw, f.vol)
	f.r.AddObserver(f.obs)

	if _, err := f.r.CreateGroup(node.Output, "default", AcceptAll, DefaultCompare(nil)); err != nil {
		t.Fatalf("CreateGroup(default) error = %v", err)
	}
	if _, err := f.r.CreateGroup(node.Input, "mics", AcceptAll, DefaultCompare(nil)); err != nil {
		t.Fatalf("CreateGroup(mics) error = %v", err)
	}
	for _, class := range []string{"player", "navigator", "phone"} {
		if err := f.r.AssignClass("default", node.Output, class, "default"); err != nil {
			t.Fatalf("AssignClass(%s) error = %v", class, err)
		}
	}
	if err := f.r.AssignClass("default", node.Input, "recorder", "mics"); err != nil {
		t.Fatalf("AssignClass(recorder) error = %v", err)
	}
	return f
}

func (f *fixture) create(t *testing.T, n *node.Node) *node.Node {
	t.Helper()
	if _, err := f.reg.Create(n); err != nil {
		t.Fatalf("Create(%s) error = %v", n.Key, err)
	}
	return n
}

// speaker is a public internal stereo output device.
func (f *fixture) speaker(t *testing.T, key string) *node.Node {
	n := node.New(key, node.Output, node.Device)
	n.Type = "speakers"
	n.Zone = "default"
	n.Channels = 2
	n.Privacy = node.Public
	n.Location = node.Internal
	n.PhysicalIndex = 1
	n.Name = key
	return f.create(t, n)
}

// headphone outranks a speaker on privacy.
func (f *fixture) headphone(t *testing.T, key string) *node.Node {
	n := node.New(key, node.Output, node.Device)
	n.Type = "headphones"
	n.Zone = "default"
	n.Channels = 2
	n.Privacy = node.Private
	n.Location = node.External
	n.PhysicalIndex = 2
	n.Name = key
	return f.create(t, n)
}

func (f *fixture) stream(t *testing.T, key, class string, priority int) *node.Node {
	n := node.New(key, node.Input, node.Stream)
	n.Type = class
	n.Zone = "default"
	n.Priority = priority
	n.PhysicalIndex = 100 + uint32(f.reg.Count())
	return f.create(t, n)
}

func (f *fixture) destroy(t *testing.T, n *node.Node) {
	t.Helper()
	if err := f.reg.Destroy(n.ID); err != nil {
		t.Fatalf("Destroy(%s) error = %v", n.Key, err)
	}
}

func (f *fixture) pass(t *testing.T) *Report {
	t.Helper()
	rep := f.r.MakeRouting()
	if rep == nil {
		t.Fatal("MakeRouting() = nil")
	}
	return rep
}

func (f *fixture) sinkOf(t *testing.T, n *node.Node) string {
	t.Helper()
	rt, ok := f.r.RouteOf(n.ID)
	if !ok {
		return ""
	}
	return rt.SinkKey
}

func groupKeys(g *Group) []string {
	var keys []string
	for _, e := range g.Entries() {
		keys = append(keys, e.Node.Key)
	}
	return keys
}
