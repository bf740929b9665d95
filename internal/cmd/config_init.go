package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opmodel/dsbake/internal/config"
	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/output"
)

var configInitForce bool

const configHeader = `# dsbake configuration.
#
# Every key can be overridden by an environment variable (DSBAKE_<KEY>, e.g.
# DSBAKE_HARNESS_DIR) or by the matching command-line flag.
#
# harnessDir:  directory holding conda_harness.sh, virtualenv_harness.sh and
#              pipenv_harness.sh (default: the bundled scripts)
# templateDir: directory holding manifest.yaml and skeleton/ (default: the
#              bundled data-science template)
`

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration",
		Long: `Initialize the dsbake configuration.

Writes the default configuration to the resolved config path:
  --config flag > DSBAKE_CONFIG env > ~/.dsbake/config.yaml

Examples:
  # Initialize configuration
  dsbake config init

  # Overwrite existing configuration
  dsbake config init --force`,
		Args:        cobra.NoArgs,
		RunE:        runConfigInit,
		Annotations: map[string]string{annotationConfigTolerant: "true"},
	}

	cmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"Overwrite existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ExpandPath(GetConfigPath())
	if err != nil {
		return err
	}

	exists, err := config.ConfigFileExists(path)
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if exists && !configInitForce {
		return &oerrors.DetailError{
			Type:     "invalid configuration",
			Message:  "configuration already exists",
			Location: path,
			Hint:     "Use --force to overwrite existing configuration.",
			Cause:    oerrors.ErrConfiguration,
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.DefaultConfig()); err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.FormatCheckmark("Configuration initialized at "+output.StyleNoun.Render(path)))
	fmt.Fprintln(out, "Validate with: dsbake config vet")

	return nil
}
