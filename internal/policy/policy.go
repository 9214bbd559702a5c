package policy

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
	"github.com/nerrad567/gray-logic-audio/internal/volume"
	"github.com/nerrad567/gray-logic-audio/internal/zone"
)

// Compare rule names.
const (
	CompareDefault = "default"
	CompareOrdered = "ordered"
)

// maxTypeRank keeps type ranks inside the low byte of the ranking key.
const maxTypeRank = 255

// Policy is the parsed policy file.
type Policy struct {
	Zones  []ZoneSpec  `yaml:"zones"`
	Groups []GroupSpec `yaml:"groups"`

	// ClassMap is zone -> device direction -> class -> group name.
	ClassMap map[string]map[string]map[string]string `yaml:"class_map"`

	// ClassPriorities orders the priority list; lower values route first.
	ClassPriorities map[string]int `yaml:"class_priorities"`
	DefaultPriority int            `yaml:"default_priority"`

	VolumeLimits []volume.Rule `yaml:"volume_limits"`

	// BridgedTypes are input device types played out through a loopback.
	BridgedTypes []string `yaml:"bridged_types"`

	// MultiplexClasses are stream classes that get a combine sink of their own.
	MultiplexClasses []string `yaml:"multiplex_classes"`

	// PortConstraints ties the port nodes of one device together so that
	// one port per device is routed in a pass.
	PortConstraints bool `yaml:"port_constraints"`

	Classifier ClassifierSpec `yaml:"classifier"`
}

// ZoneSpec declares a zone.
type ZoneSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// GroupSpec declares a routing group.
type GroupSpec struct {
	Name      string `yaml:"name"`
	Direction string `yaml:"direction"`

	// Accept lists the device types the group admits. Empty admits all.
	Accept []string `yaml:"accept"`

	// Compare is "default" or "ordered".
	Compare string `yaml:"compare"`

	// TypeRanks break ties under the default compare; higher wins.
	TypeRanks map[string]int `yaml:"type_ranks"`

	// Order is the type order of the ordered compare, best first.
	Order []string `yaml:"order"`
}

// Load reads and validates a policy file.
//
// Parameters:
//   - path: Path to the YAML policy file
//
// Returns:
//   - *Policy: Validated policy
//   - error: If the file cannot be read, parsed, or validated
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a policy document. Unknown keys are errors.
func Parse(data []byte) (*Policy, error) {
	p := &Policy{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("parsing policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the policy for errors, reporting all of them at once.
func (p *Policy) Validate() error {
	var errs []string

	zones := map[string]bool{zone.Default: true}
	for _, z := range p.Zones {
		if err := zone.ValidateName(z.Name); err != nil {
			errs = append(errs, fmt.Sprintf("zones: %v", err))
			continue
		}
		if zones[z.Name] && z.Name != zone.Default {
			errs = append(errs, fmt.Sprintf("zones: %q declared twice", z.Name))
		}
		zones[z.Name] = true
	}

	groups := [2]map[string]bool{{}, {}}
	for i, g := range p.Groups {
		where := fmt.Sprintf("groups[%d] %q", i, g.Name)
		if g.Name == "" {
			errs = append(errs, fmt.Sprintf("groups[%d]: name is required", i))
		}
		dir, err := node.ParseDirection(g.Direction)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: direction must be input or output", where))
			continue
		}
		if groups[dir][g.Name] {
			errs = append(errs, fmt.Sprintf("%s: declared twice for %s", where, dir))
		}
		groups[dir][g.Name] = true

		switch g.Compare {
		case "", CompareDefault:
			for typ, rank := range g.TypeRanks {
				if rank < 0 || rank > maxTypeRank {
					errs = append(errs, fmt.Sprintf("%s: rank of %q must be between 0 and %d", where, typ, maxTypeRank))
				}
			}
		case CompareOrdered:
			if len(g.Order) == 0 {
				errs = append(errs, fmt.Sprintf("%s: ordered compare needs an order", where))
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown compare %q", where, g.Compare))
		}
	}

	for _, zoneName := range sortedKeys(p.ClassMap) {
		if !zones[zoneName] {
			errs = append(errs, fmt.Sprintf("class_map: zone %q is not declared", zoneName))
		}
		for _, dirName := range sortedKeys(p.ClassMap[zoneName]) {
			dir, err := node.ParseDirection(dirName)
			if err != nil {
				errs = append(errs, fmt.Sprintf("class_map.%s: direction %q must be input or output", zoneName, dirName))
				continue
			}
			classes := p.ClassMap[zoneName][dirName]
			for _, class := range sortedKeys(classes) {
				if !groups[dir][classes[class]] {
					errs = append(errs, fmt.Sprintf("class_map.%s.%s.%s: no %s group %q", zoneName, dirName, class, dir, classes[class]))
				}
			}
		}
	}

	if _, err := p.NewClassifier(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := volume.NewLimiter(nil, p.VolumeLimits); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(errs, "; "))
	}
	return nil
}

// Apply declares the zones, groups and class map of the policy. Any error
// is fatal: the router is left partially configured.
func (p *Policy) Apply(router *routing.Router, zones *zone.Table) error {
	for _, z := range p.Zones {
		if z.Name == zone.Default {
			continue
		}
		if _, err := zones.Add(z.Name, z.Description); err != nil {
			return fmt.Errorf("declaring zone %q: %w", z.Name, err)
		}
	}

	for _, g := range p.Groups {
		dir, err := node.ParseDirection(g.Direction)
		if err != nil {
			return fmt.Errorf("group %q: %w", g.Name, err)
		}
		if _, err := router.CreateGroup(dir, g.Name, g.accept(), g.compare()); err != nil {
			return fmt.Errorf("creating group %q: %w", g.Name, err)
		}
	}

	for _, zoneName := range sortedKeys(p.ClassMap) {
		for _, dirName := range sortedKeys(p.ClassMap[zoneName]) {
			dir, err := node.ParseDirection(dirName)
			if err != nil {
				return fmt.Errorf("class map of zone %q: %w", zoneName, err)
			}
			classes := p.ClassMap[zoneName][dirName]
			for _, class := range sortedKeys(classes) {
				if err := router.AssignClass(zoneName, dir, class, classes[class]); err != nil {
					return fmt.Errorf("assigning class %q in zone %q: %w", class, zoneName, err)
				}
			}
		}
	}
	return nil
}

func (g GroupSpec) accept() routing.AcceptFunc {
	if len(g.Accept) == 0 {
		return routing.AcceptAll
	}
	return routing.AcceptTypes(g.Accept...)
}

func (g GroupSpec) compare() routing.CompareFunc {
	if g.Compare == CompareOrdered {
		return routing.OrderedCompare(slices.Clone(g.Order))
	}
	if len(g.TypeRanks) == 0 {
		return routing.DefaultCompare(nil)
	}
	ranks := make(map[string]int, len(g.TypeRanks))
	for typ, rank := range g.TypeRanks {
		ranks[typ] = rank
	}
	return routing.DefaultCompare(func(typ string) int { return ranks[typ] })
}

// Priority returns the priority of a stream class.
func (p *Policy) Priority(class string) int {
	if prio, ok := p.ClassPriorities[class]; ok {
		return prio
	}
	return p.DefaultPriority
}

// Bridged reports whether input devices of type typ are bridged.
func (p *Policy) Bridged(typ string) bool {
	return slices.Contains(p.BridgedTypes, typ)
}

// Multiplexed reports whether streams of class own a mux.
func (p *Policy) Multiplexed(class string) bool {
	return slices.Contains(p.MultiplexClasses, class)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
