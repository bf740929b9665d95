// Package bake renders a project into a scoped temporary directory.
package bake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
	"github.com/opmodel/dsbake/internal/templates"
)

// ProjectDir is the name of the rendered project inside the scratch directory.
const ProjectDir = "project"

// Options configures a bake.
type Options struct {
	// KeepDir retains the scratch directory after the callback returns.
	KeepDir bool

	// BaseDir is where scratch directories are created. Empty means the
	// system temporary directory.
	BaseDir string
}

// Option configures a bake.
type Option func(*Options)

// KeepDir retains the scratch directory for debugging.
func KeepDir(keep bool) Option {
	return func(o *Options) { o.KeepDir = keep }
}

// InDir creates scratch directories below dir.
func InDir(dir string) Option {
	return func(o *Options) { o.BaseDir = dir }
}

// Bake renders tree for cfg into a fresh scratch directory and hands the
// project to fn. The directory is removed on every exit path, including a
// panic in fn, unless KeepDir is set.
func Bake(ctx context.Context, tree *templates.Tree, cfg options.Configuration, fn func(*templates.Project) error, opts ...Option) error {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	scratch, err := os.MkdirTemp(o.BaseDir, "dsbake-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer cleanup(scratch, o.KeepDir)

	project, err := templates.Render(ctx, tree, cfg, filepath.Join(scratch, ProjectDir), templates.RenderOptions{})
	if err != nil {
		return err
	}

	return fn(project)
}

func cleanup(dir string, keep bool) {
	if keep {
		output.Info("keeping rendered project", "dir", dir)
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		output.Warn("failed to remove scratch directory", "dir", dir, "error", err)
		return
	}
	output.Debug("removed scratch directory", "dir", dir)
}
