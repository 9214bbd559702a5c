package policy

import (
	"fmt"
	"maps"
	"path"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/zone"
)

// Property keys the engine adds to the host properties before
// classification.
const (
	PropDirection   = "direction"
	PropDeviceName  = "device.name"
	PropDevicePort  = "device.port"
	PropCardName    = "card.name"
	PropCardProfile = "card.profile"
	PropStreamName  = "stream.name"
)

// ClassifierSpec holds the classifier rules of the policy file.
type ClassifierSpec struct {
	Devices []RuleSpec `yaml:"devices"`
	Streams []RuleSpec `yaml:"streams"`

	DefaultDeviceType  string `yaml:"default_device_type"`
	DefaultStreamClass string `yaml:"default_stream_class"`
}

// RuleSpec is one classifier rule. Every Match entry must hold: the value
// is a path.Match glob against the property of that key.
type RuleSpec struct {
	Match map[string]string `yaml:"match"`

	// Type is the device type or stream class.
	Type     string `yaml:"type"`
	Privacy  string `yaml:"privacy"`
	Location string `yaml:"location"`
	Zone     string `yaml:"zone"`
	Channels int    `yaml:"channels"`
	Ignore   bool   `yaml:"ignore"`
}

// Classification is what the classifier derives for a node.
type Classification struct {
	Type     string        `json:"type"`
	Privacy  node.Privacy  `json:"privacy"`
	Location node.Location `json:"location"`
	Zone     string        `json:"zone"`

	// Channels overrides the host channel count when non-zero.
	Channels int  `json:"channels,omitempty"`
	Ignore   bool `json:"ignore,omitempty"`
}

type rule struct {
	match map[string]string
	out   Classification
}

// Classifier maps host properties to node attributes. The first matching
// rule wins; nodes no rule matches get the default type and zone.
type Classifier struct {
	devices []rule
	streams []rule

	defaultDevice Classification
	defaultStream Classification
}

// NewClassifier compiles the classifier rules of the policy.
func (p *Policy) NewClassifier() (*Classifier, error) {
	spec := p.Classifier
	c := &Classifier{
		defaultDevice: Classification{Type: spec.DefaultDeviceType, Zone: zone.Default},
		defaultStream: Classification{Type: spec.DefaultStreamClass, Zone: zone.Default},
	}
	if c.defaultDevice.Type == "" {
		c.defaultDevice.Type = "unknown"
	}
	if c.defaultStream.Type == "" {
		c.defaultStream.Type = "unknown"
	}

	var err error
	if c.devices, err = compileRules("devices", spec.Devices); err != nil {
		return nil, err
	}
	if c.streams, err = compileRules("streams", spec.Streams); err != nil {
		return nil, err
	}
	return c, nil
}

func compileRules(section string, specs []RuleSpec) ([]rule, error) {
	out := make([]rule, 0, len(specs))
	for i, s := range specs {
		where := fmt.Sprintf("classifier.%s[%d]", section, i)
		if len(s.Match) == 0 {
			return nil, fmt.Errorf("%w: %s matches nothing", ErrInvalidRule, where)
		}
		if s.Type == "" && !s.Ignore {
			return nil, fmt.Errorf("%w: %s has no type", ErrInvalidRule, where)
		}
		for key, pattern := range s.Match {
			if _, err := path.Match(pattern, ""); err != nil {
				return nil, fmt.Errorf("%w: %s pattern for %q: %w", ErrInvalidRule, where, key, err)
			}
		}
		privacy, err := node.ParsePrivacy(s.Privacy)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, where, err)
		}
		location, err := node.ParseLocation(s.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, where, err)
		}
		if s.Zone != "" {
			if err := zone.ValidateName(s.Zone); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRule, where, err)
			}
		}
		if s.Channels < 0 {
			return nil, fmt.Errorf("%w: %s has negative channels", ErrInvalidRule, where)
		}

		out = append(out, rule{
			match: maps.Clone(s.Match),
			out: Classification{
				Type:     s.Type,
				Privacy:  privacy,
				Location: location,
				Zone:     s.Zone,
				Channels: s.Channels,
				Ignore:   s.Ignore,
			},
		})
	}
	return out, nil
}

// Classify returns the classification of a device or stream with the
// given properties.
func (c *Classifier) Classify(impl node.Implement, props map[string]string) Classification {
	rules, def := c.devices, c.defaultDevice
	if impl == node.Stream {
		rules, def = c.streams, c.defaultStream
	}

	for _, r := range rules {
		if !r.matches(props) {
			continue
		}
		out := r.out
		if out.Type == "" {
			out.Type = def.Type
		}
		if out.Zone == "" {
			out.Zone = def.Zone
		}
		return out
	}
	return def
}

func (r rule) matches(props map[string]string) bool {
	for key, pattern := range r.match {
		v, ok := props[key]
		if !ok {
			return false
		}
		if matched, _ := path.Match(pattern, v); !matched {
			return false
		}
	}
	return true
}
