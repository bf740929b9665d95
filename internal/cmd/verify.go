package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/config"
	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
	"github.com/opmodel/dsbake/internal/suite"
)

var (
	verifyMatrix matrixFlags
	verifyKeep   bool
	verifyOutput string
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	verifyMatrix = matrixFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Bake and verify every configuration",
		Long: `Bake the template for every configuration of the matrix and verify each
rendered project.

Checks, in order, stopping at the first failure of a configuration:
  1. The directory set matches the expected layout exactly
  2. The file set matches exactly, and no file contains {{, }}, {% or %}
  3. The environment manager harness script exercises the Makefile

Each configuration is rendered into its own temporary directory, removed
afterwards unless --keep is given.

Examples:
  # Verify the full matrix with the bundled harness scripts
  dsbake verify

  # Four at a time, only compatible pairings, custom harness scripts
  dsbake verify -p 4 --compatible-only --harness-dir ./tests

  # Skip the slow managers and keep the rendered projects
  dsbake verify --set environment_manager=none --keep`,
		Args: cobra.NoArgs,
		RunE: runVerify,
	}

	verifyMatrix.addTo(cmd)
	cmd.Flags().IntP("parallel", "p", 1, "Configurations verified at once (env: DSBAKE_PARALLEL)")
	cmd.Flags().Duration("timeout", 0, "Bound on a single harness run, e.g. 20m (env: DSBAKE_TIMEOUT)")
	cmd.Flags().String("harness-dir", "", "Directory holding <manager>_harness.sh scripts (env: DSBAKE_HARNESS_DIR)")
	cmd.Flags().BoolVar(&verifyKeep, "keep", false, "Keep rendered projects for inspection")
	cmd.Flags().StringVarP(&verifyOutput, "output", "o", "table", "Report format: table, yaml, json")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(verifyOutput)
	if err != nil {
		return err
	}

	domain := options.DefaultDomain()
	gen, err := verifyMatrix.generator(domain)
	if err != nil {
		return err
	}

	tree, err := loadTree()
	if err != nil {
		return err
	}

	cfg := GetConfig()
	harnessDir, err := config.ExpandPath(cfg.HarnessDir)
	if err != nil {
		return err
	}
	runner, err := harness.NewRunner(harness.WithDir(harnessDir), harness.WithTimeout(cfg.Timeout))
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			output.Warn("failed to remove harness scripts", "dir", runner.Dir(), "error", err)
		}
	}()

	count := gen.Count()
	output.Info("verifying configurations",
		"count", count,
		"parallel", cfg.Parallel,
		"timeout", runner.Timeout(),
		"harness", runner.Dir())

	var report *suite.Report
	err = output.RunWithSpinner(cmd.Context(), func() error {
		var runErr error
		report, runErr = suite.Run(cmd.Context(), gen.All(), suite.Options{
			Tree:     tree,
			Domain:   domain,
			Runner:   runner,
			Parallel: cfg.Parallel,
			KeepDirs: verifyKeep,
		})
		return runErr
	},
		output.WithTitle(fmt.Sprintf("Verifying %d configurations", count)),
		output.WithSpinnerEnabled(!verboseFlag),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		if err := output.WriteStructured(out, format, report); err != nil {
			return err
		}
	} else {
		printReport(out, domain, report, verboseFlag)
	}

	if err := report.Err(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), output.FormatCross(report.Summary()))
		return &oerrors.ExitError{Err: err, Code: exitCodeFor(report), Printed: true}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), output.FormatCheckmark(report.Summary()))
	return nil
}

// exitCodeFor picks the exit code of the first failed case.
func exitCodeFor(report *suite.Report) int {
	failed := report.Failed()
	if len(failed) == 0 {
		return oerrors.ExitSuccess
	}
	return oerrors.ExitCodeFromError(failed[0].Err)
}

// printReport writes the result table and the detail of every failed case.
// With verbose set, harness output of passing cases is shown too.
func printReport(w io.Writer, domain options.Domain, report *suite.Report, verbose bool) {
	configs := make([]options.Configuration, len(report.Cases))
	for i, c := range report.Cases {
		configs[i] = c.Config
	}
	columns := varyingNames(domain, configs)

	headers := append([]string{"#"}, columns...)
	headers = append(headers, "STAGE", "STATUS", "DURATION")
	tbl := output.NewTable(headers...)
	for _, c := range report.Cases {
		row := []string{strconv.Itoa(c.ID)}
		for _, name := range columns {
			row = append(row, c.Config[name])
		}
		status := output.StatusPassed
		if !c.Passed {
			status = output.StatusFailed
		}
		row = append(row,
			string(c.Stage),
			output.StatusStyle(status).Render(status),
			c.Duration.Round(time.Millisecond).String())
		tbl.Row(row...)
	}
	fmt.Fprintln(w, tbl.String())

	if verbose {
		for _, c := range report.Cases {
			if !c.Passed || c.HarnessOutput == "" {
				continue
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, output.StyleBold.Render(fmt.Sprintf("Case %d", c.ID))+" "+output.StyleDim.Render("harness output"))
			fmt.Fprintln(w, output.StyleDim.Render(strings.TrimRight(c.HarnessOutput, "\n")))
		}
	}

	for _, c := range report.Failed() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, output.StyleBold.Render(fmt.Sprintf("Case %d", c.ID))+" "+output.StyleDim.Render(c.Config.Key()))
		fmt.Fprintln(w, describeFailure(c.Err))
		if c.HarnessOutput != "" {
			fmt.Fprintln(w, output.StyleDim.Render(strings.TrimRight(c.HarnessOutput, "\n")))
		}
		if c.Dir != "" {
			fmt.Fprintln(w, "Kept at "+output.StyleNoun.Render(c.Dir))
		}
	}
}

// describeFailure renders set mismatches as a diff and anything else as
// its error text.
func describeFailure(err error) string {
	var detail *oerrors.DetailError
	if errors.As(err, &detail) &&
		(errors.Is(err, oerrors.ErrStructureMismatch) || errors.Is(err, oerrors.ErrFileSetMismatch)) {
		return output.RenderSetDiff(detail.Type, detail.Missing, detail.Extra)
	}
	var b strings.Builder
	b.WriteString(output.StyleRemoved.Render(oerrors.KindName(err)))
	b.WriteString(": ")
	if detail != nil {
		b.WriteString(detail.Message)
		if detail.Location != "" {
			b.WriteString(" (" + detail.Location + ")")
		}
		if detail.Hint != "" {
			b.WriteString("\n" + output.StyleDim.Render(detail.Hint))
		}
	} else {
		b.WriteString(err.Error())
	}
	return b.String()
}
