// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/config"
	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/output"
	"github.com/opmodel/dsbake/internal/templates"
)

var (
	// Global flags
	configFlag      string
	verboseFlag     bool
	timestampsFlag  bool
	templateDirFlag string

	// Resolved configuration (loaded during PersistentPreRunE)
	appConfig  *config.Config
	configPath config.ResolveConfigPathResult
	resolved   []config.ResolvedValue
)

// annotationConfigTolerant marks commands that run even when the config file
// cannot be loaded, so a broken file can be inspected or replaced.
const annotationConfigTolerant = "dsbake/config-tolerant"

// flagKeys binds flag names to configuration keys. A flag only takes part
// when the running command defines it.
var flagKeys = map[string]string{
	"harness-dir":     config.KeyHarnessDir,
	"template-dir":    config.KeyTemplateDir,
	"timeout":         config.KeyTimeout,
	"parallel":        config.KeyParallel,
	"compatible-only": config.KeyCompatibleOnly,
	"timestamps":      config.KeyLogTimestamps,
}

// NewRootCmd creates the root command for the dsbake CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsbake",
		Short: "Render and verify a data-science project template",
		Long: `dsbake renders the data-science project template for a matrix of option
combinations and verifies every rendered project: the exact directory and
file sets, that no template delimiters survive, and that the generated
Makefile works under the chosen environment manager.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (env: DSBAKE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")
	rootCmd.PersistentFlags().StringVar(&templateDirFlag, "template-dir", "", "Template directory holding manifest.yaml and skeleton/ (env: DSBAKE_TEMPLATE_DIR)")

	rootCmd.AddCommand(NewConfigsCmd())
	rootCmd.AddCommand(NewRenderCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// initializeGlobals sets up logging and loads configuration.
func initializeGlobals(cmd *cobra.Command) error {
	var err error
	configPath, err = config.ResolveConfigPath(config.ResolveConfigPathOptions{
		FlagValue: configFlag,
	})
	if err != nil {
		return err
	}

	loader := config.NewLoader()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := loader.BindFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, loadErr := loader.LoadWithDefaults(configPath.ConfigPath)
	if loadErr != nil {
		if cmd.Annotations[annotationConfigTolerant] != "true" {
			return &oerrors.DetailError{
				Type:     "invalid configuration",
				Message:  loadErr.Error(),
				Location: configPath.ConfigPath,
				Hint:     "Run 'dsbake config vet' for details, or 'dsbake config init --force' to start over.",
				Cause:    oerrors.ErrConfiguration,
			}
		}
		cfg = config.DefaultConfig()
	}
	appConfig = cfg
	resolved = loader.Resolved()

	output.SetupLogging(output.LogConfig{
		Verbose:    verboseFlag,
		Timestamps: appConfig.Log.Timestamps,
	})

	if loadErr != nil {
		output.Warn("ignoring unreadable config file", "path", configPath.ConfigPath, "error", loadErr)
	}

	if verboseFlag {
		output.Debug("initializing CLI",
			"config", configPath.ConfigPath,
			"configSource", configPath.Source,
			"configFound", loader.Found(),
		)
		config.LogResolvedValues(resolved)
	}

	return nil
}

// GetConfig returns the loaded configuration, or defaults before loading.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// GetConfigPath returns the resolved config file path.
func GetConfigPath() string {
	if configPath.ConfigPath != "" {
		return configPath.ConfigPath
	}
	return configFlag
}

// loadTree returns the configured template tree, or the bundled one.
func loadTree() (*templates.Tree, error) {
	dir := GetConfig().TemplateDir
	if dir == "" {
		return templates.Default()
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	output.Debug("loading template tree", "dir", expanded)
	return templates.LoadTree(expanded)
}
