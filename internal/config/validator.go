package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/templates"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Validate checks a loaded configuration.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: KeyTimeout, Message: "must be a positive duration"})
	}
	if cfg.Parallel < 1 {
		errs = append(errs, ValidationError{Field: KeyParallel, Message: "must be at least 1"})
	}

	if cfg.HarnessDir != "" {
		if msg := checkHarnessDir(cfg.HarnessDir); msg != "" {
			errs = append(errs, ValidationError{Field: KeyHarnessDir, Message: msg})
		}
	}

	if cfg.TemplateDir != "" {
		dir, err := ExpandPath(cfg.TemplateDir)
		if err == nil {
			_, err = templates.LoadTree(dir)
		}
		if err != nil {
			errs = append(errs, ValidationError{Field: KeyTemplateDir, Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ValidateFile strictly decodes a configuration file, rejecting unknown
// keys, and validates the result.
func ValidateFile(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return ValidationErrors{{Field: filepath.Base(expanded), Message: err.Error()}}
	}

	return Validate(cfg.WithDefaults())
}

func checkHarnessDir(dir string) string {
	expanded, err := ExpandPath(dir)
	if err != nil {
		return err.Error()
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return err.Error()
	}
	if !info.IsDir() {
		return "not a directory"
	}

	var missing []string
	for _, s := range harness.Scripts() {
		if _, err := os.Stat(filepath.Join(expanded, s)); err != nil {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return "missing " + strings.Join(missing, ", ")
	}
	return ""
}
