package verify

import (
	"context"

	"github.com/opmodel/dsbake/internal/harness"
	"github.com/opmodel/dsbake/internal/options"
)

// Stage names a verification step.
type Stage string

// Verification steps, in the order they run.
const (
	StageDirectories Stage = "directories"
	StageFiles       Stage = "files"
	StageHarness     Stage = "harness"
)

// Outcome records how far verification got.
type Outcome struct {
	// Stage is the failing step, or the last step on success.
	Stage Stage

	// Harness is the harness result when the harness step ran.
	Harness *harness.Result
}

// Verifier runs the directory, file and harness checks in order and stops
// at the first failure.
type Verifier struct {
	runner HarnessRunner
}

// New creates a Verifier that runs harness scripts with runner.
func New(runner HarnessRunner) *Verifier {
	return &Verifier{runner: runner}
}

// Verify checks the project at root against cfg.
func (v *Verifier) Verify(ctx context.Context, root string, cfg options.Configuration) (*Outcome, error) {
	out := &Outcome{Stage: StageDirectories}
	if err := CheckDirectories(root, cfg); err != nil {
		return out, err
	}

	out.Stage = StageFiles
	if err := CheckFiles(root, cfg); err != nil {
		return out, err
	}

	out.Stage = StageHarness
	if err := ctx.Err(); err != nil {
		return out, err
	}
	result, err := CheckHarness(ctx, v.runner, root, cfg)
	out.Harness = result
	return out, err
}
