package templates

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
)

// Planned is one template path resolved against a configuration.
type Planned struct {
	Entry  Entry
	Target string
}

// Render materialises tree for cfg under targetDir. Inclusion is decided
// for every path before anything is written, so a render error leaves the
// target untouched.
func Render(ctx context.Context, tree *Tree, cfg options.Configuration, targetDir string, opts RenderOptions) (*Project, error) {
	root, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, fmt.Errorf("resolving target directory: %w", err)
	}

	if err := checkTargetDir(root, opts.Force); err != nil {
		return nil, err
	}

	plan, err := Plan(tree, cfg)
	if err != nil {
		return nil, err
	}

	output.Debug("rendering project", "target", root, "paths", len(plan), "config", cfg.Key())

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", root, err)
	}

	dirs := make(map[string]bool)
	var files []string

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dest := filepath.Join(root, filepath.FromSlash(p.Target))
		for _, a := range append(ancestors(p.Target), p.Target) {
			if a != p.Target || p.Entry.IsDir {
				dirs[a] = true
			}
		}

		if p.Entry.IsDir {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", p.Target, err)
			}
			continue
		}

		content, err := tree.RenderContent(p.Entry.Path, cfg)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", p.Target, err)
		}
		if err := os.WriteFile(dest, content, tree.Mode(p.Entry.Path)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.Target, err)
		}
		files = append(files, p.Target)
	}

	project := &Project{Root: root, Files: files}
	for d := range dirs {
		project.Dirs = append(project.Dirs, d)
	}
	sort.Strings(project.Dirs)
	sort.Strings(project.Files)

	return project, nil
}

// Plan resolves every included template path of tree to its output path.
// Two included paths rendering to the same output are ambiguous.
func Plan(tree *Tree, cfg options.Configuration) ([]Planned, error) {
	var plan []Planned
	owners := make(map[string]string)

	for _, e := range tree.entries {
		ok, err := tree.Included(e.Path, cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		target, err := tree.RenderPath(e.Path, cfg)
		if err != nil {
			return nil, err
		}
		if !local(target) {
			return nil, oerrors.NewRenderError(
				fmt.Sprintf("rendered path %s escapes the project root", target),
				e.Path, cfg, nil)
		}
		if prev, dup := owners[target]; dup {
			return nil, oerrors.NewRenderError(
				fmt.Sprintf("%s and %s both render to %s", prev, e.Path, target),
				e.Path, cfg, nil)
		}
		owners[target] = e.Path
		plan = append(plan, Planned{Entry: e, Target: target})
	}

	return plan, nil
}

// local reports whether p stays inside the root it is joined to.
func local(p string) bool {
	clean := path.Clean(p)
	return clean != "." && clean != ".." && !path.IsAbs(clean) && !strings.HasPrefix(clean, "../")
}

// checkTargetDir validates the target directory.
func checkTargetDir(dir string, force bool) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking target directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading target directory: %w", err)
	}

	if len(entries) > 0 && !force {
		return &oerrors.DetailError{
			Type:     "invalid configuration",
			Message:  "target directory is not empty",
			Location: dir,
			Hint:     "Use --force to overwrite existing files.",
			Cause:    oerrors.ErrConfiguration,
		}
	}

	return nil
}
