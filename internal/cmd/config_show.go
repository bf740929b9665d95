package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/config"
	"github.com/opmodel/dsbake/internal/output"
)

var configShowOutput string

// NewConfigShowCmd creates the config show command.
func NewConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration values",
		Long: `Show every configuration value and where it came from.

Values are resolved using precedence:
  flag > environment variable > config file > default`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}

	cmd.Flags().StringVarP(&configShowOutput, "output", "o", "table", "Output format: table, yaml, json")

	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(configShowOutput)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.WriteStructured(out, format, resolved)
	}

	tbl := output.NewTable("KEY", "VALUE", "SOURCE", "ENV", "SHADOWED")
	for _, v := range resolved {
		tbl.Row(v.Key, v.Value, string(v.Source), config.EnvVar(v.Key), formatShadowed(v.Shadowed))
	}
	fmt.Fprintln(out, tbl.String())
	fmt.Fprintf(out, "Config file: %s (%s)\n", output.StyleNoun.Render(GetConfigPath()), configPath.Source)
	return nil
}

func formatShadowed(m map[config.ConfigSource]string) string {
	parts := make([]string, 0, len(m))
	for source, value := range m {
		parts = append(parts, fmt.Sprintf("%s=%s", source, value))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
