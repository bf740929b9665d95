package options

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	oerrors "github.com/opmodel/dsbake/internal/errors"
)

// Generator produces the configurations to bake. Each call to All starts a
// fresh pass, so a Generator can be iterated any number of times.
type Generator struct {
	domain         Domain
	overrides      map[string]string
	varying        []string
	licenses       []string
	compatibleOnly bool
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithOverrides pins options to fixed values. A pinned option is never crossed.
func WithOverrides(values map[string]string) GeneratorOption {
	return func(g *Generator) {
		for k, v := range values {
			g.overrides[k] = v
		}
	}
}

// WithVarying replaces the set of crossed options.
func WithVarying(names ...string) GeneratorOption {
	return func(g *Generator) {
		g.varying = slices.Clone(names)
	}
}

// WithLicenses sets the license-present values crossed against NoLicense.
func WithLicenses(licenses ...string) GeneratorOption {
	return func(g *Generator) {
		g.licenses = slices.Clone(licenses)
	}
}

// CompatibleOnly drops combinations the template's environment managers
// cannot satisfy: pipenv requires a Pipfile (and only pipenv reads one), and
// environment.yml requires conda.
func CompatibleOnly() GeneratorOption {
	return func(g *Generator) {
		g.compatibleOnly = true
	}
}

// NewGenerator creates a generator over domain.
func NewGenerator(domain Domain, opts ...GeneratorOption) *Generator {
	g := &Generator{
		domain:    domain,
		overrides: make(map[string]string),
	}
	for _, o := range domain {
		if o.Varies {
			g.varying = append(g.varying, o.Name)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate checks that overrides and varying names refer to known options and
// that pinned values are allowed.
func (g *Generator) Validate() error {
	for _, name := range g.varying {
		if _, ok := g.domain.Lookup(name); !ok {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("cannot vary unknown option %s", name), name, nil,
				fmt.Sprintf("Known options: %s", strings.Join(g.domain.Names(), ", ")))
		}
	}
	if lic, ok := g.domain.Lookup(OpenSourceLicense); ok {
		for _, l := range g.licenses {
			if err := lic.Allows(l); err != nil {
				return oerrors.NewConfigurationError(
					fmt.Sprintf("invalid license %q: %v", l, err), OpenSourceLicense, nil, choicesHint(lic))
			}
		}
	}
	base := g.domain.Defaults()
	for k, v := range g.overrides {
		base[k] = v
	}
	return g.domain.Validate(base)
}

// All returns the configurations lazily. The sequence is finite, holds no
// duplicates, and is ordered by the domain's option order.
func (g *Generator) All() iter.Seq[Configuration] {
	axes := g.axes()
	return func(yield func(Configuration) bool) {
		seen := make(map[string]struct{})
		idx := make([]int, len(axes))
		for {
			cfg := make(Configuration, len(axes))
			for i, ax := range axes {
				cfg[ax.name] = ax.values[idx[i]]
			}
			if !g.compatibleOnly || Compatible(cfg) {
				key := cfg.Key()
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					if !yield(cfg) {
						return
					}
				}
			}
			if !advance(idx, axes) {
				return
			}
		}
	}
}

// Collect drains All into a slice.
func (g *Generator) Collect() []Configuration {
	return slices.Collect(g.All())
}

// Count returns the number of configurations All yields.
func (g *Generator) Count() int {
	n := 0
	for range g.All() {
		n++
	}
	return n
}

// Compatible reports whether cfg pairs its dependency file with an
// environment manager able to consume it.
func Compatible(cfg Configuration) bool {
	manager := cfg[EnvironmentManager]
	dep := cfg[DependencyFile]
	if (manager == EnvironmentPipenv) != (dep == Pipfile) {
		return false
	}
	if dep == EnvironmentYML && manager != EnvironmentConda {
		return false
	}
	return true
}

type axis struct {
	name   string
	values []string
}

func (g *Generator) axes() []axis {
	axes := make([]axis, 0, len(g.domain))
	for _, o := range g.domain {
		axes = append(axes, axis{name: o.Name, values: g.valuesFor(o)})
	}
	return axes
}

func (g *Generator) valuesFor(o Option) []string {
	if v, ok := g.overrides[o.Name]; ok {
		return []string{v}
	}
	if !slices.Contains(g.varying, o.Name) || len(o.Choices) == 0 {
		return []string{o.Default}
	}
	if o.Name == OpenSourceLicense {
		return g.licenseAxis(o)
	}
	return dedupe(o.Choices)
}

// licenseAxis crosses license-present values with NoLicense rather than
// enumerating every license.
func (g *Generator) licenseAxis(o Option) []string {
	present := g.licenses
	if len(present) == 0 {
		if o.Default != NoLicense {
			present = []string{o.Default}
		} else {
			for _, c := range o.Choices {
				if c != NoLicense {
					present = []string{c}
					break
				}
			}
		}
	}
	values := slices.Clone(present)
	if slices.Contains(o.Choices, NoLicense) {
		values = append(values, NoLicense)
	}
	return dedupe(values)
}

// advance moves the odometer forward, last axis fastest. It returns false
// once every combination has been visited.
func advance(idx []int, axes []axis) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(axes[i].values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
