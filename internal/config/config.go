// Package config provides configuration loading and management.
package config

import (
	"time"

	"github.com/opmodel/dsbake/internal/harness"
)

// Configuration keys, as written in the config file.
const (
	KeyHarnessDir     = "harnessDir"
	KeyTemplateDir    = "templateDir"
	KeyTimeout        = "timeout"
	KeyParallel       = "parallel"
	KeyCompatibleOnly = "compatibleOnly"
	KeyLogTimestamps  = "log.timestamps"
)

// Keys lists every configuration key in display order.
var Keys = []string{
	KeyHarnessDir,
	KeyTemplateDir,
	KeyTimeout,
	KeyParallel,
	KeyCompatibleOnly,
	KeyLogTimestamps,
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `mapstructure:"timestamps" yaml:"timestamps,omitempty"`
}

// Config represents the dsbake configuration.
// Loaded from ~/.dsbake/config.yaml.
type Config struct {
	// HarnessDir holds the environment manager harness scripts. Empty uses
	// the bundled scripts.
	// Env: DSBAKE_HARNESS_DIR
	HarnessDir string `mapstructure:"harnessDir" yaml:"harnessDir,omitempty"`

	// TemplateDir holds a template tree (manifest.yaml and skeleton/).
	// Empty uses the bundled data-science template.
	// Env: DSBAKE_TEMPLATE_DIR
	TemplateDir string `mapstructure:"templateDir" yaml:"templateDir,omitempty"`

	// Timeout bounds a single harness run.
	// Env: DSBAKE_TIMEOUT, Default: 20m
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Parallel is the number of configurations verified at once.
	// Env: DSBAKE_PARALLEL, Default: 1
	Parallel int `mapstructure:"parallel" yaml:"parallel"`

	// CompatibleOnly drops dependency file and environment manager pairings
	// that cannot work together.
	// Env: DSBAKE_COMPATIBLE_ONLY
	CompatibleOnly bool `mapstructure:"compatibleOnly" yaml:"compatibleOnly"`

	// Log contains logging-related settings.
	Log LogConfig `mapstructure:"log" yaml:"log,omitempty"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `dsbake config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		Timeout:  harness.DefaultTimeout,
		Parallel: 1,
	}
}

// WithDefaults fills unset values from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	out := *c
	d := DefaultConfig()
	if out.Timeout == 0 {
		out.Timeout = d.Timeout
	}
	if out.Parallel == 0 {
		out.Parallel = d.Parallel
	}
	return &out
}
