// Package errors defines the failure taxonomy for rendering and verifying
// baked projects.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for known conditions. Every DetailError carries exactly
// one of these as its Cause so callers can classify with errors.Is.
var (
	// ErrRender indicates a template could not be rendered for a configuration.
	ErrRender = errors.New("render error")

	// ErrStructureMismatch indicates the rendered directory set is wrong.
	ErrStructureMismatch = errors.New("structure mismatch")

	// ErrFileSetMismatch indicates the rendered file set is wrong.
	ErrFileSetMismatch = errors.New("file set mismatch")

	// ErrUnrenderedTemplate indicates a rendered file still holds template delimiters.
	ErrUnrenderedTemplate = errors.New("unrendered template")

	// ErrConfiguration indicates an unknown or invalid option value.
	ErrConfiguration = errors.New("configuration error")

	// ErrHarnessExecution indicates a harness subprocess exited non-zero.
	ErrHarnessExecution = errors.New("harness execution error")
)

// DetailError captures structured failure information.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the offending path, relative to the rendered root when known.
	Location string

	// Config is the configuration the failure was observed under.
	Config map[string]string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Output holds captured subprocess output for harness failures.
	Output string

	// Missing lists expected paths absent from a rendered project.
	Missing []string

	// Extra lists rendered paths that were not expected.
	Extra []string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	if len(e.Config) > 0 {
		b.WriteString("  Config: ")
		b.WriteString(formatMap(e.Config))
		b.WriteString("\n")
	}
	for _, k := range sortedKeys(e.Context) {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(e.Context[k])
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
		if !strings.HasSuffix(e.Output, "\n") {
			b.WriteString("\n")
		}
	}

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewRenderError creates a render error for a template path.
func NewRenderError(message, location string, config map[string]string, cause error) error {
	return &DetailError{
		Type:     "render failed",
		Message:  message,
		Location: location,
		Config:   config,
		Cause:    join(ErrRender, cause),
	}
}

// NewStructureMismatch reports missing and extra directories.
func NewStructureMismatch(missing, extra []string, config map[string]string) error {
	return &DetailError{
		Type:    "directory set mismatch",
		Message: describeSetDiff("directories", missing, extra),
		Config:  config,
		Context: setDiffContext(missing, extra),
		Missing: missing,
		Extra:   extra,
		Cause:   ErrStructureMismatch,
	}
}

// NewFileSetMismatch reports missing and extra files.
func NewFileSetMismatch(missing, extra []string, config map[string]string) error {
	return &DetailError{
		Type:    "file set mismatch",
		Message: describeSetDiff("files", missing, extra),
		Config:  config,
		Context: setDiffContext(missing, extra),
		Missing: missing,
		Extra:   extra,
		Cause:   ErrFileSetMismatch,
	}
}

// NewUnrenderedTemplateError reports a leftover delimiter token in a file.
func NewUnrenderedTemplateError(location, token string, config map[string]string) error {
	return &DetailError{
		Type:     "unrendered template",
		Message:  fmt.Sprintf("file contains template delimiter %q", token),
		Location: location,
		Config:   config,
		Hint:     "A placeholder was not substituted; check the template for typos or raw delimiters.",
		Cause:    ErrUnrenderedTemplate,
	}
}

// NewConfigurationError reports an invalid option value.
func NewConfigurationError(message, option string, config map[string]string, hint string) error {
	var ctx map[string]string
	if option != "" {
		ctx = map[string]string{"Option": option}
	}
	return &DetailError{
		Type:    "invalid configuration",
		Message: message,
		Config:  config,
		Context: ctx,
		Hint:    hint,
		Cause:   ErrConfiguration,
	}
}

// NewHarnessExecutionError reports a failed harness run with its output.
func NewHarnessExecutionError(message, script string, exitCode int, output string, config map[string]string) error {
	return &DetailError{
		Type:     "harness failed",
		Message:  message,
		Location: script,
		Config:   config,
		Context:  map[string]string{"Exit code": fmt.Sprintf("%d", exitCode)},
		Output:   output,
		Cause:    ErrHarnessExecution,
	}
}

// Kind returns the sentinel classifying err, or nil when none matches.
func Kind(err error) error {
	for _, s := range []error{
		ErrRender,
		ErrStructureMismatch,
		ErrFileSetMismatch,
		ErrUnrenderedTemplate,
		ErrConfiguration,
		ErrHarnessExecution,
	} {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// KindName returns the name of err's sentinel, or "error" when none matches.
func KindName(err error) string {
	if kind := Kind(err); kind != nil {
		return kind.Error()
	}
	return "error"
}

func join(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

func describeSetDiff(noun string, missing, extra []string) string {
	return fmt.Sprintf("rendered %s differ from expected: %d missing, %d unexpected",
		noun, len(missing), len(extra))
}

func setDiffContext(missing, extra []string) map[string]string {
	ctx := make(map[string]string, 2)
	if len(missing) > 0 {
		ctx["Missing"] = strings.Join(missing, ", ")
	}
	if len(extra) > 0 {
		ctx["Unexpected"] = strings.Join(extra, ", ")
	}
	return ctx
}

func formatMap(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
