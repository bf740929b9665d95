// Package options defines the option domain of the project template and the
// configurations drawn from it.
package options

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	oerrors "github.com/opmodel/dsbake/internal/errors"
)

// Option names understood by the project template.
const (
	ProjectName        = "project_name"
	ModuleName         = "module_name"
	AuthorName         = "author_name"
	Description        = "description"
	PythonVersion      = "python_version_number"
	OpenSourceLicense  = "open_source_license"
	DependencyFile     = "dependency_file"
	EnvironmentManager = "environment_manager"
)

// Well-known option values.
const (
	NoLicense = "No license"

	EnvironmentConda      = "conda"
	EnvironmentVirtualenv = "virtualenv"
	EnvironmentPipenv     = "pipenv"
	EnvironmentNone       = "none"

	RequirementsTxt = "requirements.txt"
	EnvironmentYML  = "environment.yml"
	Pipfile         = "Pipfile"
)

var pythonIdentifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option describes one template variable and the values it may take.
type Option struct {
	// Name is the variable name referenced by templates.
	Name string `yaml:"name"`

	// Choices enumerates the allowed values. Empty means free-form.
	Choices []string `yaml:"choices,omitempty"`

	// Default is used when a configuration does not set the option.
	Default string `yaml:"default"`

	// Varies marks options the generator crosses over.
	Varies bool `yaml:"varies,omitempty"`

	// Validate checks free-form values. Nil accepts any non-empty value.
	Validate func(string) error `yaml:"-"`
}

// Allows reports whether value is valid for the option.
func (o Option) Allows(value string) error {
	if len(o.Choices) > 0 {
		if !slices.Contains(o.Choices, value) {
			return fmt.Errorf("%q is not one of %s", value, strings.Join(quoteAll(o.Choices), ", "))
		}
		return nil
	}
	if value == "" {
		return fmt.Errorf("value cannot be empty")
	}
	if o.Validate != nil {
		return o.Validate(value)
	}
	return nil
}

// Domain is the ordered set of options a configuration must satisfy.
type Domain []Option

// DefaultDomain returns the option domain of the bundled data-science template.
func DefaultDomain() Domain {
	return Domain{
		{Name: ProjectName, Default: "project"},
		{Name: ModuleName, Default: "project_module", Validate: ValidateModuleName},
		{Name: AuthorName, Default: "Your name (or your organization/company/team)"},
		{Name: Description, Default: "A short description of the project."},
		{Name: PythonVersion, Choices: []string{"3.10", "3.11", "3.12"}, Default: "3.10"},
		{
			Name:    OpenSourceLicense,
			Choices: []string{"MIT", "BSD-3-Clause", NoLicense},
			Default: "MIT",
			Varies:  true,
		},
		{
			Name:    DependencyFile,
			Choices: []string{RequirementsTxt, EnvironmentYML, Pipfile},
			Default: RequirementsTxt,
			Varies:  true,
		},
		{
			Name:    EnvironmentManager,
			Choices: []string{EnvironmentConda, EnvironmentVirtualenv, EnvironmentPipenv, EnvironmentNone},
			Default: EnvironmentNone,
			Varies:  true,
		},
	}
}

// Lookup returns the named option.
func (d Domain) Lookup(name string) (Option, bool) {
	for _, o := range d {
		if o.Name == name {
			return o, true
		}
	}
	return Option{}, false
}

// Names returns option names in domain order.
func (d Domain) Names() []string {
	names := make([]string, 0, len(d))
	for _, o := range d {
		names = append(names, o.Name)
	}
	return names
}

// Defaults returns a configuration holding every option's default.
func (d Domain) Defaults() Configuration {
	cfg := make(Configuration, len(d))
	for _, o := range d {
		cfg[o.Name] = o.Default
	}
	return cfg
}

// Validate checks that cfg sets every option to a valid value and nothing else.
func (d Domain) Validate(cfg Configuration) error {
	for _, o := range d {
		value, ok := cfg[o.Name]
		if !ok {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("required option %s is not set", o.Name),
				o.Name, cfg, "")
		}
		if err := o.Allows(value); err != nil {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("invalid value for %s: %v", o.Name, err),
				o.Name, cfg, choicesHint(o))
		}
	}
	for _, name := range cfg.Names() {
		if _, ok := d.Lookup(name); !ok {
			return oerrors.NewConfigurationError(
				fmt.Sprintf("unknown option %s", name),
				name, cfg,
				fmt.Sprintf("Known options: %s", strings.Join(d.Names(), ", ")))
		}
	}
	return nil
}

// Configuration maps option names to chosen values for a single render.
type Configuration map[string]string

// Get returns the value of an option, or "" when unset.
func (c Configuration) Get(name string) string {
	return c[name]
}

// Names returns the option names set in c, sorted.
func (c Configuration) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Key returns a canonical representation used for de-duplication.
func (c Configuration) Key() string {
	var b strings.Builder
	for i, k := range c.Names() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c[k])
	}
	return b.String()
}

// String implements fmt.Stringer.
func (c Configuration) String() string {
	return "{" + c.Key() + "}"
}

// Clone returns an independent copy of c.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// With returns a copy of c with name set to value.
func (c Configuration) With(name, value string) Configuration {
	out := c.Clone()
	out[name] = value
	return out
}

// HasLicense reports whether the configuration chooses an actual license.
func (c Configuration) HasLicense() bool {
	return !strings.HasPrefix(c[OpenSourceLicense], NoLicense)
}

// ParseAssignments parses "key=value" pairs, as given to --set.
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, oerrors.NewConfigurationError(
				fmt.Sprintf("malformed assignment %q", p), "", nil,
				"Use key=value, e.g. --set module_name=foo")
		}
		out[k] = v
	}
	return out, nil
}

// ValidateModuleName checks that name is usable as a Python package name.
func ValidateModuleName(name string) error {
	if !pythonIdentifierRegex.MatchString(name) {
		return fmt.Errorf("invalid module name %q: must start with a letter or underscore and contain only letters, digits, and underscores", name)
	}
	if isPythonKeyword(name) {
		return fmt.Errorf("invalid module name %q: cannot use a Python keyword", name)
	}
	return nil
}

func isPythonKeyword(name string) bool {
	reserved := map[string]bool{
		"False": true, "None": true, "True": true, "and": true, "as": true,
		"assert": true, "async": true, "await": true, "break": true, "class": true,
		"continue": true, "def": true, "del": true, "elif": true, "else": true,
		"except": true, "finally": true, "for": true, "from": true, "global": true,
		"if": true, "import": true, "in": true, "is": true, "lambda": true,
		"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
		"return": true, "try": true, "while": true, "with": true, "yield": true,
	}
	return reserved[name]
}

func choicesHint(o Option) string {
	if len(o.Choices) == 0 {
		return ""
	}
	return fmt.Sprintf("Valid values: %s", strings.Join(quoteAll(o.Choices), ", "))
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
