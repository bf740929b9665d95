package verify

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/options"
)

// Tokens are the template delimiters that must not survive rendering.
var Tokens = []string{"{{", "}}", "{%", "%}"}

// HarnessRunner runs the environment manager harness against a project.
type HarnessRunner interface {
	Run(ctx context.Context, root string, cfg options.Configuration) (*harness.Result, error)
}

// Listing is the directory and file content of a project on disk.
type Listing struct {
	Dirs  []string
	Files []string
}

// List walks root and returns slash-separated relative paths, sorted.
// Dirs includes ".".
func List(root string) (*Listing, error) {
	l := &Listing{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			l.Dirs = append(l.Dirs, rel)
		} else {
			l.Files = append(l.Files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}
	sort.Strings(l.Dirs)
	sort.Strings(l.Files)
	return l, nil
}

// CheckDirectories compares the directories under root with ExpectedDirs.
func CheckDirectories(root string, cfg options.Configuration) error {
	l, err := List(root)
	if err != nil {
		return err
	}
	missing, extra := setDiff(ExpectedDirs(cfg), l.Dirs)
	if missing != nil || extra != nil {
		return oerrors.NewStructureMismatch(missing, extra, cfg)
	}
	return nil
}

// CheckFiles compares the files under root with ExpectedFiles, then scans
// each file for leftover template delimiters.
func CheckFiles(root string, cfg options.Configuration) error {
	l, err := List(root)
	if err != nil {
		return err
	}
	missing, extra := setDiff(ExpectedFiles(cfg), l.Files)
	if missing != nil || extra != nil {
		return oerrors.NewFileSetMismatch(missing, extra, cfg)
	}

	for _, f := range l.Files {
		token, err := ScanFile(filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return err
		}
		if token != "" {
			return oerrors.NewUnrenderedTemplateError(f, token, cfg)
		}
	}
	return nil
}

// ScanFile returns the first delimiter token found in the file, or "".
func ScanFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	for _, tok := range Tokens {
		if bytes.Contains(data, []byte(tok)) {
			return tok, nil
		}
	}
	return "", nil
}

// CheckHarness runs the environment manager harness for cfg against root.
func CheckHarness(ctx context.Context, runner HarnessRunner, root string, cfg options.Configuration) (*harness.Result, error) {
	return runner.Run(ctx, root, cfg)
}

// setDiff returns the entries of want missing from got and the entries of
// got absent from want. Both are nil when the sets are equal.
func setDiff(want, got []string) (missing, extra []string) {
	if cmp.Equal(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b }), cmpopts.EquateEmpty()) {
		return nil, nil
	}

	have := make(map[string]bool, len(got))
	for _, g := range got {
		have[g] = true
	}
	expected := make(map[string]bool, len(want))
	for _, w := range want {
		expected[w] = true
		if !have[w] {
			missing = append(missing, w)
		}
	}
	for _, g := range got {
		if !expected[g] {
			extra = append(extra, g)
		}
	}
	return missing, extra
}
