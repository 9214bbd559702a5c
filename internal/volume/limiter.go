package volume

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nerrad567/gray-logic-audio/internal/node"
)

// Logger defines the logging interface used by the Limiter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Graph is the part of the host graph the limiter drives.
type Graph interface {
	SetClassVolumeLimit(device uint32, class string, limitDB float64) error
}

// Rule limits Class to LimitDB on a device while any class in When is
// routed to the same device.
type Rule struct {
	Class   string   `yaml:"class" json:"class"`
	When    []string `yaml:"when" json:"when"`
	LimitDB float64  `yaml:"limit_db" json:"limit_db"`
}

// Limiter implements routing.VolumeLimiter.
//
// Thread Safety:
//   - Not safe for concurrent use; call it from the main loop only.
type Limiter struct {
	graph  Graph
	rules  []Rule
	logger Logger

	stamp   uint64
	pending map[uint32]map[string]struct{}

	// applied holds the limits the host currently has, by device index.
	applied map[uint32]map[string]float64
}

// NewLimiter validates rules and returns a Limiter.
func NewLimiter(graph Graph, rules []Rule) (*Limiter, error) {
	for i, r := range rules {
		switch {
		case r.Class == "":
			return nil, fmt.Errorf("%w: rule %d has no class", ErrInvalidRule, i)
		case len(r.When) == 0:
			return nil, fmt.Errorf("%w: rule %d for %q has no trigger classes", ErrInvalidRule, i, r.Class)
		case r.LimitDB >= 0:
			return nil, fmt.Errorf("%w: rule %d for %q must attenuate, got %.1f dB", ErrInvalidRule, i, r.Class, r.LimitDB)
		case slices.Contains(r.When, r.Class):
			return nil, fmt.Errorf("%w: rule %d for %q triggers on itself", ErrInvalidRule, i, r.Class)
		}
	}
	return &Limiter{
		graph:   graph,
		rules:   slices.Clone(rules),
		logger:  noopLogger{},
		pending: make(map[uint32]map[string]struct{}),
		applied: make(map[uint32]map[string]float64),
	}, nil
}

// SetLogger sets the logger for the limiter.
func (l *Limiter) SetLogger(logger Logger) {
	l.logger = logger
}

// AddLimitingClass records that class is routed to device in pass stamp.
// A newer stamp discards whatever an unfinished older pass collected.
func (l *Limiter) AddLimitingClass(device *node.Node, class string, stamp uint64) {
	if stamp != l.stamp {
		l.stamp = stamp
		clear(l.pending)
	}
	if device == nil || !device.Materialized() || class == "" {
		return
	}
	set, ok := l.pending[device.PhysicalIndex]
	if !ok {
		set = make(map[string]struct{})
		l.pending[device.PhysicalIndex] = set
	}
	set[class] = struct{}{}
}

// Commit applies the limits implied by the classes collected for stamp and
// clears the ones that no longer apply. A Commit for any other stamp sees
// an empty pass.
func (l *Limiter) Commit(stamp uint64) {
	if stamp != l.stamp {
		l.stamp = stamp
		clear(l.pending)
	}

	want := make(map[uint32]map[string]float64)
	for dev, classes := range l.pending {
		if limits := l.limitsFor(classes); len(limits) > 0 {
			want[dev] = limits
		}
	}

	for _, dev := range sortedKeys(l.applied) {
		for _, class := range sortedKeys(l.applied[dev]) {
			if _, keep := want[dev][class]; keep {
				continue
			}
			if err := l.graph.SetClassVolumeLimit(dev, class, 0); err != nil {
				// The device is most likely gone, and its limits with it.
				l.logger.Debug("volume limit clear failed", "device", dev, "class", class, "error", err)
			}
			delete(l.applied[dev], class)
		}
		if len(l.applied[dev]) == 0 {
			delete(l.applied, dev)
		}
	}

	for _, dev := range sortedKeys(want) {
		for _, class := range sortedKeys(want[dev]) {
			limit := want[dev][class]
			if cur, ok := l.applied[dev][class]; ok && cur == limit {
				continue
			}
			if err := l.graph.SetClassVolumeLimit(dev, class, limit); err != nil {
				l.logger.Warn("volume limit failed", "device", dev, "class", class, "limit_db", limit, "error", err)
				continue
			}
			if l.applied[dev] == nil {
				l.applied[dev] = make(map[string]float64)
			}
			l.applied[dev][class] = limit
			l.logger.Debug("volume limited", "device", dev, "class", class, "limit_db", limit)
		}
	}
	clear(l.pending)
}

// limitsFor returns the strongest limit of every class in classes that a
// rule triggers on.
func (l *Limiter) limitsFor(classes map[string]struct{}) map[string]float64 {
	out := make(map[string]float64)
	for _, r := range l.rules {
		if _, routed := classes[r.Class]; !routed {
			continue
		}
		triggered := slices.ContainsFunc(r.When, func(c string) bool {
			_, ok := classes[c]
			return ok
		})
		if !triggered {
			continue
		}
		if cur, ok := out[r.Class]; !ok || r.LimitDB < cur {
			out[r.Class] = r.LimitDB
		}
	}
	return out
}

// Applied returns a copy of the limits currently pushed to the host.
func (l *Limiter) Applied() map[uint32]map[string]float64 {
	out := make(map[uint32]map[string]float64, len(l.applied))
	for dev, limits := range l.applied {
		out[dev] = maps.Clone(limits)
	}
	return out
}

func sortedKeys[K ~uint32 | ~string, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}
