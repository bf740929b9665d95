// Package suite bakes and verifies a project for every configuration of a
// matrix and collects the outcomes.
package suite

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opmodel/dsbake/internal/bake"
	oerrors "github.com/opmodel/dsbake/internal/errors"
	"github.com/opmodel/dsbake/internal/options"
	"github.com/opmodel/dsbake/internal/output"
	"github.com/opmodel/dsbake/internal/templates"
	"github.com/opmodel/dsbake/internal/verify"
)

// Stage names the step a case reached.
type Stage string

// Case stages. The verify stages are shared with package verify.
const (
	StageConfigure   Stage = "configure"
	StageRender      Stage = "render"
	StageDirectories       = Stage(verify.StageDirectories)
	StageFiles             = Stage(verify.StageFiles)
	StageHarness           = Stage(verify.StageHarness)
)

// CaseResult is the outcome of one configuration. Passed is set when every
// check succeeded; Err holds the failure otherwise.
type CaseResult struct {
	ID            int                   `yaml:"id"`
	Config        options.Configuration `yaml:"config"`
	Passed        bool                  `yaml:"passed"`
	Stage         Stage                 `yaml:"stage"`
	Err           error                 `yaml:"-"`
	Error         string                `yaml:"error,omitempty"`
	Duration      time.Duration         `yaml:"duration"`
	HarnessOutput string                `yaml:"harnessOutput,omitempty"`
	Dir           string                `yaml:"dir,omitempty"`
}

// Report collects every case of a run in input order.
type Report struct {
	Cases    []CaseResult  `yaml:"cases"`
	Duration time.Duration `yaml:"duration"`
}

// Failed returns the failing cases.
func (r *Report) Failed() []CaseResult {
	var out []CaseResult
	for _, c := range r.Cases {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Passed returns the number of passing cases.
func (r *Report) Passed() int {
	return len(r.Cases) - len(r.Failed())
}

// Summary returns a one-line account of the run.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d failed, %d total in %s",
		r.Passed(), len(r.Failed()), len(r.Cases), r.Duration.Round(time.Millisecond))
}

// Err returns an error when any case failed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d configurations failed verification", len(failed), len(r.Cases))
}

// Options configures a run.
type Options struct {
	// Tree is rendered for every configuration.
	Tree *templates.Tree

	// Domain validates each configuration before rendering. Nil skips
	// validation.
	Domain options.Domain

	// Runner executes harness scripts.
	Runner verify.HarnessRunner

	// Parallel is the number of cases run at once. Values below 1 mean 1.
	Parallel int

	// KeepDirs retains every rendered project.
	KeepDirs bool

	// BaseDir is where scratch directories are created.
	BaseDir string

	// OnResult, when set, is called as each case finishes. Calls may come
	// from several goroutines.
	OnResult func(CaseResult)
}

// Run bakes and verifies every configuration. Cases are independent: a
// failing case does not stop the others. The returned error is non-nil
// only when ctx ends the run early.
func Run(ctx context.Context, configs iter.Seq[options.Configuration], opts Options) (*Report, error) {
	if opts.Tree == nil {
		return nil, errors.New("suite: no template tree")
	}
	if opts.Runner == nil {
		return nil, errors.New("suite: no harness runner")
	}

	start := time.Now()
	cfgs := slices.Collect(configs)
	results := make([]CaseResult, len(cfgs))

	g := new(errgroup.Group)
	g.SetLimit(max(opts.Parallel, 1))

	for i, cfg := range cfgs {
		g.Go(func() error {
			results[i] = RunCase(ctx, i+1, cfg, opts)
			if opts.OnResult != nil {
				opts.OnResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Cases: results, Duration: time.Since(start)}
	return report, ctx.Err()
}

// RunCase bakes and verifies a single configuration.
func RunCase(ctx context.Context, id int, cfg options.Configuration, opts Options) CaseResult {
	log := output.CaseLogger(strconv.Itoa(id))
	start := time.Now()
	res := CaseResult{ID: id, Config: cfg, Stage: StageConfigure}

	finish := func(err error) CaseResult {
		res.Duration = time.Since(start)
		res.Err = err
		res.Passed = err == nil
		if err != nil {
			res.Error = err.Error()
			log.Error("case failed", "stage", res.Stage, "kind", oerrors.KindName(err), "config", cfg.Key())
		} else {
			log.Info("case passed", "duration", res.Duration.Round(time.Millisecond))
		}
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if opts.Domain != nil {
		if err := opts.Domain.Validate(cfg); err != nil {
			return finish(err)
		}
	}

	log.Debug("baking", "config", cfg.Key())
	res.Stage = StageRender
	verifier := verify.New(opts.Runner)

	err := bake.Bake(ctx, opts.Tree, cfg, func(p *templates.Project) error {
		if opts.KeepDirs {
			res.Dir = p.Root
		}
		out, err := verifier.Verify(ctx, p.Root, cfg)
		res.Stage = Stage(out.Stage)
		if out.Harness != nil {
			res.HarnessOutput = out.Harness.Output()
		}
		return err
	}, bake.KeepDir(opts.KeepDirs), bake.InDir(opts.BaseDir))

	return finish(err)
}
