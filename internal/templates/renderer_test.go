package templates

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
)

func TestRender(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "project")
	project, err := Render(context.Background(), tree, defaultConfig(), target, RenderOptions{})
	require.NoError(t, err)

	assert.Equal(t, target, project.Root)
	assert.Contains(t, project.Files, "LICENSE")
	assert.Contains(t, project.Files, "requirements.txt")
	assert.Contains(t, project.Files, "foo/__init__.py")
	assert.Contains(t, project.Files, "foo/data/make_dataset.py")
	assert.NotContains(t, project.Files, "Pipfile")
	assert.NotContains(t, project.Files, "environment.yml")
	assert.Contains(t, project.Dirs, "foo/utils")
	assert.Contains(t, project.Dirs, "reports/figures")
	assert.True(t, sort.StringsAreSorted(project.Files))
	assert.True(t, sort.StringsAreSorted(project.Dirs))

	for _, f := range project.Files {
		_, err := os.Stat(filepath.Join(target, f))
		assert.NoError(t, err, f)
	}
}

func TestRender_NoLicense(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	cfg := defaultConfig().With(options.OpenSourceLicense, options.NoLicense)
	target := t.TempDir()
	project, err := Render(context.Background(), tree, cfg, target, RenderOptions{})
	require.NoError(t, err)

	assert.NotContains(t, project.Files, "LICENSE")
	_, err = os.Stat(filepath.Join(target, "LICENSE"))
	assert.True(t, os.IsNotExist(err))
}

func TestRender_Deterministic(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	first, err := Render(context.Background(), tree, defaultConfig(), t.TempDir(), RenderOptions{})
	require.NoError(t, err)
	second, err := Render(context.Background(), tree, defaultConfig(), t.TempDir(), RenderOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Dirs, second.Dirs)
	assert.Equal(t, first.Files, second.Files)
}

func TestRender_Ambiguous(t *testing.T) {
	tree, err := NewTree(fstest.MapFS{
		"skeleton/{{.a}}.txt": {Data: []byte("a")},
		"skeleton/{{.b}}.txt": {Data: []byte("b")},
	})
	require.NoError(t, err)

	target := t.TempDir()
	_, err = Render(context.Background(), tree, options.Configuration{"a": "same", "b": "same"}, target, RenderOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrRender))

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written when planning fails")
}

func TestRender_UnknownPlaceholder(t *testing.T) {
	tree, err := NewTree(fstest.MapFS{
		"skeleton/a.txt.tmpl": {Data: []byte("{{ .missing }}")},
	})
	require.NoError(t, err)

	_, err = Render(context.Background(), tree, options.Configuration{"a": "b"}, t.TempDir(), RenderOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrRender))
}

func TestRender_TargetNotEmpty(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing"), []byte("x"), 0o644))

	_, err = Render(context.Background(), tree, defaultConfig(), target, RenderOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
	assert.ErrorIs(t, err, oerrors.ErrConfiguration)

	_, err = Render(context.Background(), tree, defaultConfig(), target, RenderOptions{Force: true})
	assert.NoError(t, err)
}

func TestRender_TargetIsFile(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	_, err = Render(context.Background(), tree, defaultConfig(), target, RenderOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestRender_Canceled(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Render(ctx, tree, defaultConfig(), t.TempDir(), RenderOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan(t *testing.T) {
	tree, err := Default()
	require.NoError(t, err)

	plan, err := Plan(tree, defaultConfig().With(options.DependencyFile, options.Pipfile))
	require.NoError(t, err)

	targets := make(map[string]bool, len(plan))
	for _, p := range plan {
		targets[p.Target] = true
	}
	assert.True(t, targets["Pipfile"])
	assert.False(t, targets["requirements.txt"])
	assert.True(t, targets["foo/visualization/visualize.py"])
}
