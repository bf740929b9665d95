package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
)

//go:embed all:template
var templateFS embed.FS

// SkeletonDir is the directory under a template root holding the tree.
const SkeletonDir = "skeleton"

// Tree is a template tree: enumerable paths, per-path rendering and
// per-path inclusion predicates.
type Tree struct {
	fsys    fs.FS
	entries []Entry
	rules   map[string]Condition
	funcs   template.FuncMap
}

// Default returns the bundled data-science project tree.
func Default() (*Tree, error) {
	root, err := fs.Sub(templateFS, "template")
	if err != nil {
		return nil, err
	}
	return NewTree(root)
}

// LoadTree loads a tree from a directory holding manifest.yaml and skeleton/.
func LoadTree(dir string) (*Tree, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening template directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return NewTree(os.DirFS(dir))
}

// NewTree builds a tree from root. The manifest is optional; without it
// every path is always rendered.
func NewTree(root fs.FS) (*Tree, error) {
	manifest := &Manifest{}
	data, err := fs.ReadFile(root, ManifestFile)
	switch {
	case err == nil:
		manifest, err = ParseManifest(data)
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}

	skeleton, err := fs.Sub(root, SkeletonDir)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		fsys:  skeleton,
		rules: make(map[string]Condition, len(manifest.Rules)),
		funcs: sprig.TxtFuncMap(),
	}

	err = fs.WalkDir(skeleton, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		t.entries = append(t.entries, Entry{Path: p, IsDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", SkeletonDir, err)
	}
	if len(t.entries) == 0 {
		return nil, fmt.Errorf("template tree %s is empty", SkeletonDir)
	}

	for _, r := range manifest.Rules {
		if !t.has(r.Path) {
			return nil, fmt.Errorf("rule for %s does not match any template path", r.Path)
		}
		t.rules[r.Path] = r.When
	}

	return t, nil
}

// Paths returns every template path in walk order.
func (t *Tree) Paths() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Path
	}
	return out
}

// Conditional returns the template paths guarded by a rule, sorted.
func (t *Tree) Conditional() []string {
	out := make([]string, 0, len(t.rules))
	for p := range t.rules {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Included reports whether p is rendered under cfg. A path is rendered only
// when its own rule and the rules of all its parent directories hold.
func (t *Tree) Included(p string, cfg options.Configuration) (bool, error) {
	for _, candidate := range append(ancestors(p), p) {
		cond, ok := t.rules[candidate]
		if !ok {
			continue
		}
		if _, set := cfg[cond.Option]; !set {
			return false, oerrors.NewRenderError(
				fmt.Sprintf("condition on %s references unknown option %s", candidate, cond.Option),
				p, cfg, nil)
		}
		if !cond.Predicate()(cfg) {
			return false, nil
		}
	}
	return true, nil
}

// RenderPath substitutes cfg into every element of p. The template suffix
// is dropped from rendered files.
func (t *Tree) RenderPath(p string, cfg options.Configuration) (string, error) {
	entry, ok := t.entry(p)
	if !ok {
		return "", oerrors.NewRenderError("unknown template path", p, cfg, nil)
	}

	elems := strings.Split(p, "/")
	for i, elem := range elems {
		rendered, err := t.execute(p, elem, cfg)
		if err != nil {
			return "", err
		}
		if i == len(elems)-1 && entry.IsTemplate() {
			rendered = strings.TrimSuffix(rendered, TemplateSuffix)
		}
		if rendered == "" || rendered == "." || rendered == ".." || strings.ContainsAny(rendered, `/\`) {
			return "", oerrors.NewRenderError(
				fmt.Sprintf("path element %q renders to invalid name %q", elem, rendered),
				p, cfg, nil)
		}
		elems[i] = rendered
	}
	return path.Join(elems...), nil
}

// RenderContent returns the content of file p under cfg.
func (t *Tree) RenderContent(p string, cfg options.Configuration) ([]byte, error) {
	entry, ok := t.entry(p)
	if !ok || entry.IsDir {
		return nil, oerrors.NewRenderError("not a template file", p, cfg, nil)
	}

	data, err := fs.ReadFile(t.fsys, p)
	if err != nil {
		return nil, oerrors.NewRenderError("reading template", p, cfg, err)
	}
	if !entry.IsTemplate() {
		return data, nil
	}

	rendered, err := t.execute(p, string(data), cfg)
	if err != nil {
		return nil, err
	}
	return []byte(rendered), nil
}

// Mode returns the file mode a rendered copy of p should get.
func (t *Tree) Mode(p string) fs.FileMode {
	info, err := fs.Stat(t.fsys, p)
	if err == nil && info.Mode().Perm()&0o111 != 0 {
		return 0o755
	}
	return 0o644
}

func (t *Tree) execute(name, text string, cfg options.Configuration) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(path.Base(name)).
		Funcs(t.funcs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", oerrors.NewRenderError("parsing template", name, cfg, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string(cfg)); err != nil {
		return "", oerrors.NewRenderError("executing template", name, cfg, err)
	}
	return buf.String(), nil
}

func (t *Tree) entry(p string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Path == p {
			return e, true
		}
	}
	return Entry{}, false
}

func (t *Tree) has(p string) bool {
	_, ok := t.entry(p)
	return ok
}
