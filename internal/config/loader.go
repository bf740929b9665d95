package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environment variable prefix for dsbake configuration.
const envPrefix = "DSBAKE"

// envVars maps configuration keys to their environment variables.
var envVars = map[string]string{
	KeyHarnessDir:     "DSBAKE_HARNESS_DIR",
	KeyTemplateDir:    "DSBAKE_TEMPLATE_DIR",
	KeyTimeout:        "DSBAKE_TIMEOUT",
	KeyParallel:       "DSBAKE_PARALLEL",
	KeyCompatibleOnly: "DSBAKE_COMPATIBLE_ONLY",
	KeyLogTimestamps:  "DSBAKE_LOG_TIMESTAMPS",
}

// EnvVar returns the environment variable for a configuration key.
func EnvVar(key string) string {
	return envVars[key]
}

// Loader handles loading and merging configuration from multiple sources.
// Precedence is flag > env > config file > default.
type Loader struct {
	v     *viper.Viper
	file  *viper.Viper
	flags map[string]*pflag.Flag
	path  string
	found bool
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envVars {
		_ = v.BindEnv(key, env)
	}

	d := DefaultConfig()
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyParallel, d.Parallel)
	v.SetDefault(KeyCompatibleOnly, d.CompatibleOnly)

	return &Loader{
		v:     v,
		file:  viper.New(),
		flags: make(map[string]*pflag.Flag),
	}
}

// BindFlag makes flag the highest-precedence source for key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("binding %s: no such flag", key)
	}
	if err := l.v.BindPFlag(key, flag); err != nil {
		return fmt.Errorf("binding %s: %w", key, err)
	}
	l.flags[key] = flag
	return nil
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// A missing file is not an error.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}
	l.path = expandedPath

	for _, v := range []*viper.Viper{l.v, l.file} {
		v.SetConfigFile(expandedPath)
		v.SetConfigType("yaml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		l.found = true
		_ = l.file.ReadInConfig()
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies defaults.
func (l *Loader) LoadWithDefaults(configFile string) (*Config, error) {
	cfg, err := l.Load(configFile)
	if err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// ConfigFile returns the config file path of the last Load.
func (l *Loader) ConfigFile() string {
	return l.path
}

// Found reports whether the last Load read a config file.
func (l *Loader) Found() bool {
	return l.found
}

// Resolved returns every key with the source its value came from.
func (l *Loader) Resolved() []ResolvedValue {
	out := make([]ResolvedValue, 0, len(Keys))
	for _, key := range Keys {
		opts := ResolveOptions{Key: key, EnvVar: envVars[key]}
		if f, ok := l.flags[key]; ok && f.Changed {
			opts.FlagValue = f.Value.String()
			opts.FlagSet = true
		}
		if l.file.IsSet(key) {
			opts.ConfigValue = l.file.GetString(key)
			opts.ConfigSet = true
		}
		opts.DefaultValue = defaultString(key)
		out = append(out, Resolve(opts))
	}
	return out
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return false, err
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func defaultString(key string) string {
	d := DefaultConfig()
	switch key {
	case KeyTimeout:
		return d.Timeout.String()
	case KeyParallel:
		return fmt.Sprintf("%d", d.Parallel)
	case KeyCompatibleOnly:
		return fmt.Sprintf("%t", d.CompatibleOnly)
	default:
		return ""
	}
}
