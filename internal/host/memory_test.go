package host

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

type recordingSink struct {
	ops []string
}

func (s *recordingSink) Command(op string, _ map[string]any) {
	s.ops = append(s.ops, op)
}

func analogCard() []Profile {
	return []Profile{
		{
			Name: "output:analog-stereo+input:analog-stereo",
			Devices: []DeviceSpec{
				{
					Direction: "output",
					Name:      "alsa_output.pci.analog-stereo",
					Channels:  2,
					Ports: []PortSpec{
						{Name: "analog-output-speaker", Available: true},
						{Name: "analog-output-headphones", Available: false},
					},
				},
				{Direction: "input", Name: "alsa_input.pci.analog-stereo", Channels: 2},
			},
		},
		{Name: "off"},
	}
}

func bluetoothCard() []Profile {
	return []Profile{
		{Name: "a2dp_sink", Devices: []DeviceSpec{{Direction: "output", Name: "bluez_sink.00_11.a2dp_sink", Channels: 2}}},
		{Name: "headset_head_unit", Devices: []DeviceSpec{
			{Direction: "output", Name: "bluez_sink.00_11.headset_head_unit", Channels: 1},
			{Direction: "input", Name: "bluez_source.00_11.headset_head_unit", Channels: 1},
		}},
		{Name: "off"},
	}
}

func newMemory(t *testing.T) (*Memory, *[]Event, *recordingSink) {
	t.Helper()
	m := NewMemory()
	var events []Event
	m.SetListener(func(ev Event) { events = append(events, ev) })
	sink := &recordingSink{}
	m.SetCommandSink(sink)
	return m, &events, sink
}

func kinds(events []Event) []EventKind {
	var out []EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestAddCardBringsUpActiveProfile(t *testing.T) {
	m, events, sink := newMemory(t)

	card, err := m.AddCard("alsa_card.pci", analogCard(), "output:analog-stereo+input:analog-stereo", nil)
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}

	want := []EventKind{EventCardAdded, EventDeviceAdded, EventDeviceAdded}
	if got := kinds(*events); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if len(sink.ops) != 0 {
		t.Errorf("bridge-originated change mirrored commands %v", sink.ops)
	}

	idx, ok := m.LookupDevice(node.Output, "alsa_output.pci.analog-stereo")
	if !ok {
		t.Fatal("sink not found")
	}
	d, _ := m.Device(idx)
	if d.Card != card || d.ActivePort != "analog-output-speaker" {
		t.Errorf("device = %+v", d)
	}

	if _, err := m.AddCard("alsa_card.pci", analogCard(), "off", nil); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("duplicate AddCard() error = %v", err)
	}
	if _, err := m.AddCard("other", analogCard(), "missing", nil); !errors.Is(err, ErrNoSuchProfile) {
		t.Errorf("AddCard(missing profile) error = %v", err)
	}
}

func TestSetCardProfileRecreatesDevices(t *testing.T) {
	m, events, sink := newMemory(t)
	card, _ := m.AddCard("bluez_card.00_11", bluetoothCard(), "a2dp_sink", nil)
	oldIdx, _ := m.LookupDevice(node.Output, "bluez_sink.00_11.a2dp_sink")
	stream, _ := m.AddStream(node.Input, "music", nil)
	if err := m.MoveStream(stream, oldIdx); err != nil {
		t.Fatalf("MoveStream() error = %v", err)
	}
	*events = nil

	if err := m.SetCardProfile(card, "headset_head_unit"); err != nil {
		t.Fatalf("SetCardProfile() error = %v", err)
	}

	want := []EventKind{EventDeviceRemoved, EventCardProfileChanged, EventDeviceAdded, EventDeviceAdded}
	if got := kinds(*events); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if _, ok := m.LookupDevice(node.Output, "bluez_sink.00_11.a2dp_sink"); ok {
		t.Error("device of the old profile still present")
	}
	newIdx, ok := m.LookupDevice(node.Output, "bluez_sink.00_11.headset_head_unit")
	if !ok || newIdx == oldIdx {
		t.Errorf("new device index = %d (ok %v), old %d", newIdx, ok, oldIdx)
	}
	if s, _ := m.Stream(stream); s.Device != node.InvalidIndex {
		t.Errorf("stream still on removed device %d", s.Device)
	}
	if active, _ := m.ActiveProfile(card); active != "headset_head_unit" {
		t.Errorf("ActiveProfile() = %q", active)
	}
	if !slices.Contains(sink.ops, "set_card_profile") {
		t.Errorf("commands = %v, want set_card_profile", sink.ops)
	}

	*events = nil
	if err := m.SetCardProfile(card, "headset_head_unit"); err != nil || len(*events) != 0 {
		t.Errorf("repeated SetCardProfile() = %v with events %v", err, *events)
	}
	if err := m.SetCardProfile(card, "hifi"); !errors.Is(err, ErrNoSuchProfile) {
		t.Errorf("SetCardProfile(hifi) error = %v", err)
	}
	if err := m.SetCardProfile(99, "off"); !errors.Is(err, ErrNoSuchObject) {
		t.Errorf("SetCardProfile(99) error = %v", err)
	}
}

func TestSetDevicePort(t *testing.T) {
	m, events, _ := newMemory(t)
	_, _ = m.AddCard("alsa_card.pci", analogCard(), "output:analog-stereo+input:analog-stereo", nil)
	sinkIdx, _ := m.LookupDevice(node.Output, "alsa_output.pci.analog-stereo")
	*events = nil

	tests := []struct {
		name    string
		dir     node.Direction
		port    string
		wantErr error
	}{
		{"unavailable", node.Output, "analog-output-headphones", ErrPortUnavailable},
		{"unknown", node.Output, "hdmi", ErrNoSuchPort},
		{"wrong direction", node.Input, "analog-output-speaker", ErrDirectionMismatch},
		{"already active", node.Output, "analog-output-speaker", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.SetDevicePort(tt.dir, sinkIdx, tt.port); !errors.Is(err, tt.wantErr) {
				t.Errorf("SetDevicePort() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(*events) != 0 {
		t.Fatalf("failed switches emitted %v", *events)
	}

	if err := m.SetPortAvailable(node.Output, "alsa_output.pci.analog-stereo", "analog-output-headphones", true); err != nil {
		t.Fatalf("SetPortAvailable() error = %v", err)
	}
	if err := m.SetDevicePort(node.Output, sinkIdx, "analog-output-headphones"); err != nil {
		t.Fatalf("SetDevicePort() error = %v", err)
	}
	if port, _ := m.ActivePort(node.Output, sinkIdx); port != "analog-output-headphones" {
		t.Errorf("ActivePort() = %q", port)
	}
	if got := kinds(*events); !slices.Equal(got, []EventKind{EventPortAvailability, EventPortChanged}) {
		t.Errorf("events = %v", got)
	}
}

func TestMoveStreamDirections(t *testing.T) {
	m, _, _ := newMemory(t)
	_, _ = m.AddCard("alsa_card.pci", analogCard(), "output:analog-stereo+input:analog-stereo", nil)
	sinkIdx, _ := m.LookupDevice(node.Output, "alsa_output.pci.analog-stereo")
	srcIdx, _ := m.LookupDevice(node.Input, "alsa_input.pci.analog-stereo")
	play, _ := m.AddStream(node.Input, "music", nil)
	rec, _ := m.AddStream(node.Output, "recorder", nil)
	combine, _ := m.CreateCombine("combine.music", []uint32{sinkIdx})

	tests := []struct {
		name    string
		stream  uint32
		device  uint32
		wantErr error
	}{
		{"playback to sink", play, sinkIdx, nil},
		{"playback to combine", play, combine, nil},
		{"capture from source", rec, srcIdx, nil},
		{"playback to source", play, srcIdx, ErrDirectionMismatch},
		{"capture to combine", rec, combine, ErrDirectionMismatch},
		{"unknown stream", 999, sinkIdx, ErrNoSuchObject},
		{"unknown device", play, 999, ErrNoSuchObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.MoveStream(tt.stream, tt.device); !errors.Is(err, tt.wantErr) {
				t.Errorf("MoveStream() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCombineAndLoopback(t *testing.T) {
	m, _, sink := newMemory(t)
	_, _ = m.AddCard("alsa_card.pci", analogCard(), "output:analog-stereo+input:analog-stereo", nil)
	sinkIdx, _ := m.LookupDevice(node.Output, "alsa_output.pci.analog-stereo")
	srcIdx, _ := m.LookupDevice(node.Input, "alsa_input.pci.analog-stereo")

	if _, err := m.CreateCombine("bad", []uint32{srcIdx}); !errors.Is(err, ErrDirectionMismatch) {
		t.Errorf("CreateCombine(source slave) error = %v", err)
	}
	cb, err := m.CreateCombine("combine.music", []uint32{sinkIdx})
	if err != nil {
		t.Fatalf("CreateCombine() error = %v", err)
	}
	if cb < combineBase {
		t.Errorf("combine index %d overlaps device indexes", cb)
	}

	lb, err := m.CreateLoopback(srcIdx, cb)
	if err != nil {
		t.Fatalf("CreateLoopback() error = %v", err)
	}
	s, ok := m.Stream(lb.Stream)
	if !ok || !s.Internal || s.Device != cb {
		t.Errorf("loopback stream = %+v", s)
	}
	if _, ok := m.StreamByName(s.Name); ok {
		t.Error("internal stream visible by name")
	}
	if err := m.RemoveStream(lb.Stream); !errors.Is(err, ErrNoSuchObject) {
		t.Errorf("RemoveStream(internal) error = %v", err)
	}

	if err := m.DestroyCombine(cb); err != nil {
		t.Fatalf("DestroyCombine() error = %v", err)
	}
	if s, _ := m.Stream(lb.Stream); s.Device != node.InvalidIndex {
		t.Error("stream left on destroyed combine")
	}
	if err := m.DestroyLoopback(lb.Module); err != nil {
		t.Fatalf("DestroyLoopback() error = %v", err)
	}
	if m.CombineCount() != 0 || m.LoopbackCount() != 0 {
		t.Errorf("combines %d loopbacks %d left", m.CombineCount(), m.LoopbackCount())
	}

	want := []string{"create_combine", "create_loopback", "destroy_combine", "destroy_loopback"}
	if !slices.Equal(sink.ops, want) {
		t.Errorf("commands = %v, want %v", sink.ops, want)
	}
}

func TestSetClassVolumeLimit(t *testing.T) {
	m, _, sink := newMemory(t)
	_, _ = m.AddCard("alsa_card.pci", analogCard(), "output:analog-stereo+input:analog-stereo", nil)
	sinkIdx, _ := m.LookupDevice(node.Output, "alsa_output.pci.analog-stereo")

	_ = m.SetClassVolumeLimit(sinkIdx, "player", -12)
	_ = m.SetClassVolumeLimit(sinkIdx, "player", -12)
	if got := m.VolumeLimit(sinkIdx, "player"); got != -12 {
		t.Errorf("VolumeLimit() = %v, want -12", got)
	}
	_ = m.SetClassVolumeLimit(sinkIdx, "player", 0)
	if got := m.VolumeLimit(sinkIdx, "player"); got != 0 {
		t.Errorf("VolumeLimit() after clear = %v", got)
	}
	if len(sink.ops) != 2 {
		t.Errorf("commands = %v, want one set and one clear", sink.ops)
	}
	if err := m.SetClassVolumeLimit(999, "player", -6); !errors.Is(err, ErrNoSuchObject) {
		t.Errorf("SetClassVolumeLimit(999) error = %v", err)
	}
}

func TestApplyBridgeEvents(t *testing.T) {
	m, events, _ := newMemory(t)

	steps := []struct {
		kind    string
		payload string
		want    EventKind
	}{
		{BridgeCardAdded, `{"card":"bluez_card.00_11","profile":"off","profiles":[{"name":"off"},{"name":"a2dp_sink","devices":[{"direction":"output","name":"bluez_sink.00_11.a2dp_sink","channels":2}]}]}`, EventCardAdded},
		{BridgeCardProfile, `{"card":"bluez_card.00_11","profile":"a2dp_sink"}`, EventDeviceAdded},
		{BridgeStreamAdded, `{"direction":"input","stream":"sink-input.7","props":{"media.role":"music"}}`, EventStreamAdded},
		{BridgeStreamRemoved, `{"stream":"sink-input.7"}`, EventStreamRemoved},
		{BridgeCardRemoved, `{"card":"bluez_card.00_11"}`, EventCardRemoved},
	}
	for _, step := range steps {
		ev, err := DecodeBridgeEvent(step.kind, []byte(step.payload))
		if err != nil {
			t.Fatalf("DecodeBridgeEvent(%s) error = %v", step.kind, err)
		}
		if err := m.Apply(ev); err != nil {
			t.Fatalf("Apply(%s) error = %v", step.kind, err)
		}
		if last := (*events)[len(*events)-1]; last.Kind != step.want {
			t.Errorf("after %s last event = %s, want %s", step.kind, last.Kind, step.want)
		}
	}

	if _, err := DecodeBridgeEvent(BridgeCardAdded, []byte("{")); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("DecodeBridgeEvent(bad json) error = %v", err)
	}
	if err := m.Apply(BridgeEvent{Kind: "reboot"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Apply(unknown) error = %v", err)
	}
	if err := m.Apply(BridgeEvent{Kind: BridgeStreamRemoved, Stream: "ghost"}); !errors.Is(err, ErrNoSuchObject) {
		t.Errorf("Apply(ghost stream) error = %v", err)
	}
	if err := m.Apply(BridgeEvent{Kind: BridgeStreamAdded, Direction: "sideways", Stream: "x"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Apply(bad direction) error = %v", err)
	}
}

type recordingEnqueuer struct {
	topic string
	msg   map[string]any
}

func (e *recordingEnqueuer) Enqueue(topic string, v any, _ bool) bool {
	e.topic = topic
	e.msg, _ = v.(map[string]any)
	return true
}

func TestMQTTSink(t *testing.T) {
	out := &recordingEnqueuer{}
	s := NewMQTTSink(out, "pulse")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	s.Command("move_stream", map[string]any{"stream": "music", "device": "speaker"})

	if out.topic != "graylogic/audio/host/pulse/command/move_stream" {
		t.Errorf("topic = %q", out.topic)
	}
	if out.msg["op"] != "move_stream" || out.msg["stream"] != "music" || out.msg["ts"] != "2026-03-01T12:00:00Z" {
		t.Errorf("message = %v", out.msg)
	}
}
