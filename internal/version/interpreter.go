package version

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// interpreterVersionRegex matches version output like
// "GNU bash, version 5.2.15(1)-release".
var interpreterVersionRegex = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// InterpreterInfo describes the interpreter harness scripts run under.
type InterpreterInfo struct {
	// Name is the interpreter looked up in PATH.
	Name string `json:"name"`

	// Version is the interpreter version.
	Version string `json:"version,omitempty"`

	// Path is the path to the interpreter.
	Path string `json:"path,omitempty"`

	// Found indicates if the interpreter was found.
	Found bool `json:"found"`

	// Message provides additional information when detection failed.
	Message string `json:"message,omitempty"`
}

// DetectInterpreter finds name in PATH and asks it for its version.
func DetectInterpreter(name string) InterpreterInfo {
	path, err := exec.LookPath(name)
	if err != nil {
		return InterpreterInfo{
			Name:    name,
			Message: name + " not found in PATH",
		}
	}

	cmd := exec.Command(path, "--version")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return InterpreterInfo{
			Name:    name,
			Path:    path,
			Found:   true,
			Message: "failed to get version: " + err.Error(),
		}
	}

	version, err := extractVersion(out.String())
	if err != nil {
		return InterpreterInfo{Name: name, Path: path, Found: true, Message: err.Error()}
	}

	return InterpreterInfo{Name: name, Version: version, Path: path, Found: true}
}

// extractVersion extracts the version number from the first line of
// version output.
func extractVersion(output string) (string, error) {
	first, _, _ := strings.Cut(output, "\n")
	match := interpreterVersionRegex.FindString(first)
	if match == "" {
		match = interpreterVersionRegex.FindString(output)
	}
	if match == "" {
		return "", fmt.Errorf("failed to parse version from output: %q", strings.TrimSpace(output))
	}
	return match, nil
}

// String returns a human-readable interpreter info string.
func (i InterpreterInfo) String() string {
	if !i.Found {
		return fmt.Sprintf("  %s: not found", i.Name)
	}
	version := i.Version
	if version == "" {
		version = "unknown (" + i.Message + ")"
	}
	return fmt.Sprintf("  %s: %s\n  Path: %s", i.Name, version, i.Path)
}
