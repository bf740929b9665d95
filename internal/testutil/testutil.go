// Package testutil provides test helpers for dsbake tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// HarnessScripts are the script names a harness directory must hold.
var HarnessScripts = []string{
	"conda_harness.sh",
	"virtualenv_harness.sh",
	"pipenv_harness.sh",
}

// TempDir creates a temporary directory for tests and returns a cleanup function.
func TempDir(t *testing.T) (string, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "dsbake-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Logf("warning: failed to remove temp dir %s: %v", dir, err)
		}
	}
}

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// WriteScript writes an executable bash script.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := WriteFile(t, dir, name, "#!/bin/bash\n"+body+"\n")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("failed to chmod %s: %v", path, err)
	}
	return path
}

// FakeHarnessDir creates a directory holding every harness script. Each
// script echoes the project root it was given, writes a line to stderr and
// exits with exitCode. The directory is removed when the test ends.
func FakeHarnessDir(t *testing.T, exitCode int) string {
	t.Helper()
	dir, cleanup := TempDir(t)
	t.Cleanup(cleanup)

	for _, name := range HarnessScripts {
		WriteScript(t, dir, name, fmt.Sprintf(
			"echo \"%s $1\"\necho \"%s done\" >&2\nexit %d", name, name, exitCode))
	}
	return dir
}
