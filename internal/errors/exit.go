package errors

import "errors"

// Exit codes returned by the dsbake binary.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitConfigurationError indicates an invalid option or config file.
	ExitConfigurationError = 2

	// ExitRenderError indicates a template could not be rendered.
	ExitRenderError = 3

	// ExitVerificationFailed indicates at least one verification check failed.
	ExitVerificationFailed = 4
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	// Err is the underlying error.
	Err error

	// Code is the process exit code.
	Code int

	// Printed reports whether the command layer already displayed the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return ExitConfigurationError
	case errors.Is(err, ErrRender):
		return ExitRenderError
	case errors.Is(err, ErrStructureMismatch),
		errors.Is(err, ErrFileSetMismatch),
		errors.Is(err, ErrUnrenderedTemplate),
		errors.Is(err, ErrHarnessExecution):
		return ExitVerificationFailed
	default:
		return ExitGeneralError
	}
}
