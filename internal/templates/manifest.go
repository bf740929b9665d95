package templates

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/dsbake/internal/options"
)

// ManifestFile is the name of the inclusion manifest at the template root.
const ManifestFile = "manifest.yaml"

// Manifest declares which template paths are rendered under which options.
type Manifest struct {
	Rules []Rule `yaml:"rules"`
}

// Rule guards a template path (and everything below it) with a condition.
type Rule struct {
	Path string    `yaml:"path"`
	When Condition `yaml:"when"`
}

// Condition compares one option against literal values. Exactly one
// comparison must be set.
type Condition struct {
	Option    string   `yaml:"option"`
	Equals    *string  `yaml:"equals,omitempty"`
	NotEquals *string  `yaml:"notEquals,omitempty"`
	In        []string `yaml:"in,omitempty"`
	NotIn     []string `yaml:"notIn,omitempty"`
}

// Predicate decides whether a path is rendered for a configuration.
type Predicate func(options.Configuration) bool

// ParseManifest decodes and checks a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}

	seen := make(map[string]bool, len(m.Rules))
	for i, r := range m.Rules {
		if r.Path == "" {
			return nil, fmt.Errorf("rule %d: path is required", i)
		}
		if seen[r.Path] {
			return nil, fmt.Errorf("rule %d: duplicate rule for %s", i, r.Path)
		}
		seen[r.Path] = true
		if err := r.When.check(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Path, err)
		}
	}
	return &m, nil
}

func (c Condition) check() error {
	if c.Option == "" {
		return fmt.Errorf("condition option is required")
	}
	set := 0
	if c.Equals != nil {
		set++
	}
	if c.NotEquals != nil {
		set++
	}
	if c.In != nil {
		set++
	}
	if c.NotIn != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("condition on %s must set exactly one of equals, notEquals, in, notIn", c.Option)
	}
	return nil
}

// Predicate compiles the condition.
func (c Condition) Predicate() Predicate {
	switch {
	case c.Equals != nil:
		want := *c.Equals
		return func(cfg options.Configuration) bool { return cfg[c.Option] == want }
	case c.NotEquals != nil:
		want := *c.NotEquals
		return func(cfg options.Configuration) bool { return cfg[c.Option] != want }
	case c.In != nil:
		return func(cfg options.Configuration) bool { return slices.Contains(c.In, cfg[c.Option]) }
	default:
		return func(cfg options.Configuration) bool { return !slices.Contains(c.NotIn, cfg[c.Option]) }
	}
}
