// Package harness runs the per-environment-manager scripts that exercise a
// rendered project's Makefile.
package harness

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
)

//go:embed scripts/*.sh
var scriptFS embed.FS

// DefaultTimeout bounds a single harness run.
const DefaultTimeout = 20 * time.Minute

// EnvFile is the dotenv file of a rendered project.
const EnvFile = ".env"

// Result is the outcome of a harness run.
type Result struct {
	Manager  string        `json:"manager"`
	Script   string        `json:"script,omitempty"`
	ExitCode int           `json:"exitCode"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
	Skipped  bool          `json:"skipped,omitempty"`
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	default:
		return strings.TrimRight(r.Stdout, "\n") + "\n" + r.Stderr
	}
}

// Runner executes harness scripts.
type Runner struct {
	dir     string
	owned   bool
	timeout time.Duration
	env     []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir uses scripts from dir instead of the bundled ones.
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithTimeout bounds each run. Zero or negative keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithEnv adds KEY=VALUE pairs to every script environment.
func WithEnv(kv ...string) Option {
	return func(r *Runner) { r.env = append(r.env, kv...) }
}

// NewRunner creates a Runner. Without WithDir the bundled scripts are
// written to a temporary directory that Close removes.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}

	if r.dir != "" {
		abs, err := filepath.Abs(r.dir)
		if err != nil {
			return nil, fmt.Errorf("resolving harness directory: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, oerrors.NewConfigurationError(
				fmt.Sprintf("harness directory %s: %v", r.dir, err), "harnessDir", nil, "")
		}
		if !info.IsDir() {
			return nil, oerrors.NewConfigurationError(
				fmt.Sprintf("harness directory %s is not a directory", r.dir), "harnessDir", nil, "")
		}
		r.dir = abs
		return r, nil
	}

	dir, err := os.MkdirTemp("", "dsbake-harness-*")
	if err != nil {
		return nil, fmt.Errorf("creating harness directory: %w", err)
	}
	if err := materialize(dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	r.dir = dir
	r.owned = true
	return r, nil
}

// Dir returns the directory scripts are run from.
func (r *Runner) Dir() string {
	return r.dir
}

// Timeout returns the per-run bound.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Close removes bundled scripts written by NewRunner.
func (r *Runner) Close() error {
	if !r.owned {
		return nil
	}
	r.owned = false
	return os.RemoveAll(r.dir)
}

// Run exercises the project at root with the script for cfg's environment
// manager. The manager is resolved before any process is started.
func (r *Runner) Run(ctx context.Context, root string, cfg options.Configuration) (*Result, error) {
	desc, err := Lookup(cfg[options.EnvironmentManager], cfg)
	if err != nil {
		return nil, err
	}
	if desc.NoOp() {
		output.Debug("no harness for environment manager", "manager", desc.Manager)
		return &Result{Manager: desc.Manager, Skipped: true}, nil
	}

	script := filepath.Join(r.dir, desc.Script)
	if _, err := os.Stat(script); err != nil {
		return nil, oerrors.NewConfigurationError(
			fmt.Sprintf("harness script %s not found", script), options.EnvironmentManager, cfg,
			"Point --harness-dir at a directory holding "+strings.Join(Scripts(), ", "))
	}

	root, err = filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	env, err := r.environ(root)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, desc.Interpreter, script, root)
	cmd.Dir = root
	cmd.Env = env
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	output.Debug("running harness", "manager", desc.Manager, "script", script, "root", root)

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Manager:  desc.Manager,
		Script:   desc.Script,
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	output.Debug("harness finished",
		"manager", desc.Manager,
		"exit", result.ExitCode,
		"duration", result.Duration.Round(time.Millisecond),
		"output", result.Output())

	if runErr == nil {
		return result, nil
	}

	var message string
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		message = fmt.Sprintf("%s timed out after %s", desc.Script, r.timeout)
	case errors.As(runErr, &exitErr):
		message = fmt.Sprintf("%s failed with exit code %d", desc.Script, exitErr.ExitCode())
	default:
		message = fmt.Sprintf("%s: %v", desc.Script, runErr)
	}

	return result, oerrors.NewHarnessExecutionError(message, script, result.ExitCode, result.Output(), cfg)
}

// environ returns the parent environment with the project's .env and the
// runner's extra variables layered on top.
func (r *Runner) environ(root string) ([]string, error) {
	env := os.Environ()

	vars, err := godotenv.Read(filepath.Join(root, EnvFile))
	switch {
	case err == nil:
		for k, v := range vars {
			env = append(env, k+"="+v)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", EnvFile, err)
	}

	return append(env, r.env...), nil
}

// materialize writes the bundled scripts into dir.
func materialize(dir string) error {
	entries, err := fs.ReadDir(scriptFS, "scripts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := fs.ReadFile(scriptFS, "scripts/"+e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0o755); err != nil {
			return fmt.Errorf("writing %s: %w", e.Name(), err)
		}
	}
	return nil
}
