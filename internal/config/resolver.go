package config

import (
	"os"

	"github.com/opmodel/dsbake/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedValue is a configuration value with its origin.
type ResolvedValue struct {
	// Key is the configuration key.
	Key string `json:"key"`
	// Value is the effective value.
	Value string `json:"value"`
	// Source indicates where the value came from.
	Source ConfigSource `json:"source"`
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string `json:"shadowed,omitempty"`
}

// ResolveOptions holds the candidate values of one key.
type ResolveOptions struct {
	// Key is the configuration key.
	Key string
	// FlagValue is the flag value; only used when FlagSet.
	FlagValue string
	FlagSet   bool
	// EnvVar is the environment variable consulted for the key.
	EnvVar string
	// ConfigValue is the config file value; only used when ConfigSet.
	ConfigValue string
	ConfigSet   bool
	// DefaultValue is the built-in default.
	DefaultValue string
}

// Resolve picks the effective value using precedence:
// (1) flag, (2) environment, (3) config file, (4) default.
func Resolve(opts ResolveOptions) ResolvedValue {
	type candidate struct {
		source ConfigSource
		value  string
		set    bool
	}

	envValue, envSet := "", false
	if opts.EnvVar != "" {
		envValue, envSet = os.LookupEnv(opts.EnvVar)
	}

	candidates := []candidate{
		{SourceFlag, opts.FlagValue, opts.FlagSet},
		{SourceEnv, envValue, envSet},
		{SourceConfig, opts.ConfigValue, opts.ConfigSet},
		{SourceDefault, opts.DefaultValue, true},
	}

	result := ResolvedValue{Key: opts.Key, Shadowed: make(map[ConfigSource]string)}
	for _, c := range candidates {
		if !c.set {
			continue
		}
		if result.Source == "" {
			result.Value = c.value
			result.Source = c.source
			continue
		}
		if c.source != SourceDefault {
			result.Shadowed[c.source] = c.value
		}
	}
	return result
}

// ResolveConfigPathOptions contains options for config path resolution.
type ResolveConfigPathOptions struct {
	// FlagValue is the --config flag value (empty if not set).
	FlagValue string
}

// ResolveConfigPathResult contains the resolved config path and its source.
type ResolveConfigPathResult struct {
	// ConfigPath is the resolved config file path.
	ConfigPath string
	// Source indicates where the config path came from.
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) DSBAKE_CONFIG env, (3) ~/.dsbake/config.yaml default
func ResolveConfigPath(opts ResolveConfigPathOptions) (ResolveConfigPathResult, error) {
	result := ResolveConfigPathResult{
		Shadowed: make(map[ConfigSource]string),
	}

	envValue := os.Getenv(EnvConfig)

	paths, err := DefaultPaths()
	if err != nil {
		return result, err
	}
	defaultPath := paths.ConfigFile

	switch {
	case opts.FlagValue != "":
		result.ConfigPath = opts.FlagValue
		result.Source = SourceFlag
		if envValue != "" {
			result.Shadowed[SourceEnv] = envValue
		}
		result.Shadowed[SourceDefault] = defaultPath
	case envValue != "":
		result.ConfigPath = envValue
		result.Source = SourceEnv
		result.Shadowed[SourceDefault] = defaultPath
	default:
		result.ConfigPath = defaultPath
		result.Source = SourceDefault
	}

	return result, nil
}

// LogResolvedValues logs configuration resolution at DEBUG level.
func LogResolvedValues(values []ResolvedValue) {
	for _, v := range values {
		output.Debug("config value resolved",
			"key", v.Key,
			"value", v.Value,
			"source", v.Source,
		)
		for source, shadowed := range v.Shadowed {
			output.Debug("  shadowed by higher precedence",
				"key", v.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
