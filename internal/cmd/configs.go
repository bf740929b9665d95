package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
)

var (
	configsMatrix matrixFlags
	configsOutput string
)

// NewConfigsCmd creates the configs command.
func NewConfigsCmd() *cobra.Command {
	configsMatrix = matrixFlags{}

	cmd := &cobra.Command{
		Use:   "configs",
		Short: "List the configuration matrix",
		Long: `List every configuration the verify command would bake.

The matrix crosses each varying option (license present or absent, the
dependency file and the environment manager by default); every other
option keeps its default unless pinned with --set.

Examples:
  # Show the full matrix
  dsbake configs

  # Only the pairings the environment managers can satisfy, as JSON
  dsbake configs --compatible-only -o json

  # Pin the module name and vary only the environment manager
  dsbake configs --set module_name=foo --vary environment_manager`,
		Args: cobra.NoArgs,
		RunE: runConfigs,
	}

	configsMatrix.addTo(cmd)
	cmd.Flags().StringVarP(&configsOutput, "output", "o", "table", "Output format: table, yaml, json")

	return cmd
}

func runConfigs(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(configsOutput)
	if err != nil {
		return err
	}

	domain := options.DefaultDomain()
	gen, err := configsMatrix.generator(domain)
	if err != nil {
		return err
	}
	configs := gen.Collect()

	output.Debug("generated configurations", "count", len(configs))

	if format != output.FormatTable {
		return output.WriteStructured(cmd.OutOrStdout(), format, configs)
	}

	columns := varyingNames(domain, configs)
	if len(columns) == 0 {
		columns = domain.Names()
	}

	tbl := output.NewTable(append([]string{"#"}, columns...)...)
	for i, cfg := range configs {
		row := []string{strconv.Itoa(i + 1)}
		for _, name := range columns {
			row = append(row, cfg[name])
		}
		tbl.Row(row...)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
	fmt.Fprintf(cmd.OutOrStdout(), "%d configurations\n", len(configs))
	return nil
}
