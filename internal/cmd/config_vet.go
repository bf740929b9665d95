package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/config"
	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/output"
)

// NewConfigVetCmd creates the config vet command.
func NewConfigVetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vet",
		Short: "Validate configuration",
		Long: `Validate the dsbake configuration file.

Checks performed:
  1. Config file exists at resolved path
  2. Config file is valid YAML with no unknown keys
  3. timeout is positive and parallel is at least 1
  4. harnessDir, when set, holds every harness script
  5. templateDir, when set, holds a loadable template tree

The config path is resolved using precedence:
  --config flag > DSBAKE_CONFIG env > ~/.dsbake/config.yaml

Examples:
  # Validate default configuration
  dsbake config vet

  # Validate custom config path
  dsbake config vet --config /path/to/config.yaml`,
		Args:        cobra.NoArgs,
		RunE:        runConfigVet,
		Annotations: map[string]string{annotationConfigTolerant: "true"},
	}
}

func runConfigVet(cmd *cobra.Command, args []string) error {
	path, err := config.ExpandPath(GetConfigPath())
	if err != nil {
		return err
	}

	output.Debug("validating config", "path", path, "source", configPath.Source)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &oerrors.DetailError{
			Type:     "invalid configuration",
			Message:  "configuration file not found",
			Location: path,
			Hint:     "Run 'dsbake config init' to create default configuration",
			Cause:    oerrors.ErrConfiguration,
		}
	}

	if err := config.ValidateFile(path); err != nil {
		return fmt.Errorf("%s: %w: %w", path, oerrors.ErrConfiguration, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), output.FormatCheckmark("Configuration is valid: "+output.StyleNoun.Render(path)))
	return nil
}
