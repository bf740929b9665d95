package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
	"github.com/opmodel/dsbake/internal/templates"
)

var (
	renderSet   []string
	renderDir   string
	renderForce bool
)

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	renderSet = nil

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a single project",
		Long: `Render the template for one configuration into a directory.

Options not pinned with --set keep their defaults. The project is written to
--dir, or to a directory named after project_name in the current directory.

Examples:
  # Render with defaults
  dsbake render

  # Render a pipenv project into ./churn
  dsbake render --set project_name=churn --set module_name=churn \
    --set dependency_file=Pipfile --set environment_manager=pipenv`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}

	cmd.Flags().StringArrayVar(&renderSet, "set", nil, "Set an option (key=value, repeatable)")
	cmd.Flags().StringVarP(&renderDir, "dir", "d", "", "Target directory (default: ./<project_name>)")
	cmd.Flags().BoolVarP(&renderForce, "force", "f", false, "Render into a non-empty directory")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	domain := options.DefaultDomain()

	overrides, err := options.ParseAssignments(renderSet)
	if err != nil {
		return err
	}
	cfg := domain.Defaults()
	for k, v := range overrides {
		cfg[k] = v
	}
	if err := domain.Validate(cfg); err != nil {
		return err
	}

	tree, err := loadTree()
	if err != nil {
		return err
	}

	dir := renderDir
	if dir == "" {
		dir = cfg[options.ProjectName]
	}

	project, err := templates.Render(cmd.Context(), tree, cfg, dir, templates.RenderOptions{Force: renderForce})
	if err != nil {
		return err
	}

	entries := make([]string, 0, len(project.Dirs)+len(project.Files))
	for _, d := range project.Dirs {
		entries = append(entries, d+"/")
	}
	entries = append(entries, project.Files...)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, output.RenderSimpleTree(filepath.Base(project.Root), entries))
	fmt.Fprintln(out, output.FormatCheckmark(fmt.Sprintf("Rendered %d files to %s",
		len(project.Files), output.StyleNoun.Render(project.Root))))
	output.Debug("rendered configuration", "config", cfg.Key())

	return nil
}
