// Package templates loads the project skeleton and renders it for a
// configuration.
package templates

import (
	"path"
	"strings"
)

// TemplateSuffix marks files whose content is rendered. Other files are
// copied verbatim, although their paths are still rendered.
const TemplateSuffix = ".tmpl"

// Entry is a single path of the template tree.
type Entry struct {
	// Path is slash-separated and relative to the skeleton root.
	Path string

	// IsDir reports whether the entry is a directory.
	IsDir bool
}

// IsTemplate reports whether the entry's content is rendered.
func (e Entry) IsTemplate() bool {
	return !e.IsDir && strings.HasSuffix(e.Path, TemplateSuffix)
}

// Project describes a rendered project on disk.
type Project struct {
	// Root is the absolute path of the rendered project.
	Root string

	// Dirs lists rendered directories relative to Root, sorted, without ".".
	Dirs []string

	// Files lists rendered files relative to Root, sorted.
	Files []string
}

// RenderOptions configures rendering into a target directory.
type RenderOptions struct {
	// Force allows rendering into a non-empty directory.
	Force bool
}

// ancestors returns p's parent directories, nearest last, excluding ".".
func ancestors(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append([]string{dir}, out...)
	}
	return out
}
