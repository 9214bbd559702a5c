package policy

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

func TestClassifyDevices(t *testing.T) {
	c, err := loadTestPolicy(t).NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name  string
		props map[string]string
		want  Classification
	}{
		{
			name:  "headphone port",
			props: map[string]string{PropDirection: "output", PropDevicePort: "analog-output-headphones"},
			want:  Classification{Type: "headphones", Privacy: node.Private, Location: node.External, Zone: "default"},
		},
		{
			name:  "bluetooth a2dp",
			props: map[string]string{PropDirection: "output", PropCardName: "bluez_card.00_11", PropCardProfile: "a2dp_sink"},
			want:  Classification{Type: "bluetooth_a2dp", Privacy: node.Private, Location: node.External, Zone: "default"},
		},
		{
			name:  "bluetooth headset",
			props: map[string]string{PropDirection: "input", PropCardName: "bluez_card.00_11", PropCardProfile: "headset_head_unit"},
			want:  Classification{Type: "bluetooth_sco", Privacy: node.Private, Location: node.External, Zone: "default"},
		},
		{
			name:  "monitor source ignored",
			props: map[string]string{PropDirection: "input", PropDeviceName: "alsa_output.pci.monitor"},
			want:  Classification{Type: "speakers", Zone: "default", Ignore: true},
		},
		{
			name:  "line in",
			props: map[string]string{PropDirection: "input", PropDevicePort: "analog-input-linein"},
			want:  Classification{Type: "line_in", Location: node.External, Zone: "default"},
		},
		{
			name:  "hdmi",
			props: map[string]string{PropDirection: "output", PropDeviceName: "alsa_output.hdmi-stereo"},
			want:  Classification{Type: "hdmi", Location: node.External, Zone: "default"},
		},
		{
			name:  "no rule matches",
			props: map[string]string{},
			want:  Classification{Type: "speakers", Zone: "default"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(node.Device, tt.props); got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassifyStreams(t *testing.T) {
	c, err := loadTestPolicy(t).NewClassifier()
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}

	tests := []struct {
		name  string
		props map[string]string
		want  string
		zone  string
	}{
		{"music", map[string]string{PropDirection: "input", "media.role": "music"}, "player", "default"},
		{"navigation", map[string]string{PropDirection: "input", "media.role": "navigation"}, "navigator", "default"},
		{"capture", map[string]string{PropDirection: "output"}, "recorder", "default"},
		{"rear seat app", map[string]string{PropDirection: "input", "application.name": "rear-video"}, "player", "rear"},
		{"unclassified", map[string]string{PropDirection: "input"}, "player", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(node.Stream, tt.props)
			if got.Type != tt.want || got.Zone != tt.zone {
				t.Errorf("Classify() = %s in %s, want %s in %s", got.Type, got.Zone, tt.want, tt.zone)
			}
		})
	}
}

func TestNewClassifierRejects(t *testing.T) {
	tests := []struct {
		name string
		rule RuleSpec
	}{
		{"empty match", RuleSpec{Type: "speakers"}},
		{"no type", RuleSpec{Match: map[string]string{"direction": "output"}}},
		{"bad glob", RuleSpec{Match: map[string]string{"device.name": "[abc"}, Type: "speakers"}},
		{"bad privacy", RuleSpec{Match: map[string]string{"direction": "output"}, Type: "speakers", Privacy: "secret"}},
		{"bad location", RuleSpec{Match: map[string]string{"direction": "output"}, Type: "speakers", Location: "roof"}},
		{"bad zone", RuleSpec{Match: map[string]string{"direction": "output"}, Type: "speakers", Zone: "Back Seat"}},
		{"negative channels", RuleSpec{Match: map[string]string{"direction": "output"}, Type: "speakers", Channels: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Policy{Classifier: ClassifierSpec{Devices: []RuleSpec{tt.rule}}}
			if _, err := p.NewClassifier(); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("NewClassifier() error = %v, want ErrInvalidRule", err)
			}
		})
	}
}
