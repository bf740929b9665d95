package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show dsbake version information.

Displays:
  - dsbake version, commit, and build date
  - the interpreter harness scripts run under, if found`,
		Args: cobra.NoArgs,
		RunE: runVersion,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	interp := version.DetectInterpreter(harness.Interpreter)

	fmt.Fprintln(cmd.OutOrStdout(), version.FullVersionString(info, interp))
	return nil
}
