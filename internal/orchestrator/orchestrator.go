// Package orchestrator runs the premerge checks for one checkout: configure,
// build, test and static analysis, then publishes the verdict.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/premerge/internal/buildsys"
	"github.com/felixgeelhaar/premerge/internal/classify"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
	"github.com/felixgeelhaar/premerge/internal/telemetry"
)

// ArtifactsDir is created inside the checkout and uploaded by the agent.
const ArtifactsDir = "artifacts"

// Publisher reports the outcome of a run.
type Publisher interface {
	// Begin is called before the first step.
	Begin() error
	Publish(ctx context.Context, r *report.Report, timings runner.Timings) error
}

// Checks selects the optional static-analysis steps.
type Checks struct {
	Format       bool
	Tidy         bool
	Base         string // Revision the analysis diffs against
	FormatIgnore *classify.Ignore
	TidyIgnore   *classify.Ignore
}

// Orchestrator wires the steps of a premerge run.
type Orchestrator struct {
	runner     *runner.Runner
	exec       exec.Runner
	configurer buildsys.Configurer
	publisher  Publisher
	conduit    phab.Conduit
	checks     Checks
	build      BuildInfo
	out        io.Writer
	logger     *log.Logger
}

// Options holds the collaborators of an Orchestrator.
type Options struct {
	Runner     *runner.Runner
	Exec       exec.Runner
	Configurer buildsys.Configurer
	Publisher  Publisher
	Conduit    phab.Conduit // Used for the build link, may be nil
	Checks     Checks
	Build      BuildInfo
	Out        io.Writer
	Logger     *log.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	if opts.Runner == nil {
		opts.Runner = runner.New(runner.Config{Out: opts.Out, Logger: opts.Logger})
	}
	return &Orchestrator{
		runner:     opts.Runner,
		exec:       opts.Exec,
		configurer: opts.Configurer,
		publisher:  opts.Publisher,
		conduit:    opts.Conduit,
		checks:     opts.Checks,
		build:      opts.Build,
		out:        opts.Out,
		logger:     opts.Logger,
	}
}

// Run executes the checks in workDir and publishes the result.
//
// The returned report is complete whenever the error is nil or
// errors.ErrChecksFailed. Any other error comes from a step that could not
// be evaluated; the run stops there and the marker keeps saying "failed".
func (o *Orchestrator) Run(ctx context.Context, workDir string) (*report.Report, error) {
	ctx, span := telemetry.StartRunSpan(ctx, "run")
	defer span.End()

	artifactsDir := filepath.Join(workDir, ArtifactsDir)
	if err := os.MkdirAll(artifactsDir, 0750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "create artifacts directory", err)
	}

	if o.conduit != nil && o.build.URL != "" {
		if err := phab.MaybeAddURLArtifact(ctx, o.conduit, o.logger, o.build.TargetPHID, o.build.URL, "Buildkite build"); err != nil {
			o.logger.WithError(err).Warn("cannot link the build")
		}
	}
	if err := o.publisher.Begin(); err != nil {
		return nil, err
	}

	state := runner.NewState(workDir, artifactsDir)
	if err := o.runSteps(ctx, state); err != nil {
		telemetry.RecordError(span, err)
		return state.Report, err
	}

	o.writeSummary(state.Report)
	if err := o.publisher.Publish(ctx, state.Report, o.runner.Timings()); err != nil {
		telemetry.RecordError(span, err)
		return state.Report, err
	}

	verdict := state.Report.Verdict()
	telemetry.RecordResult(span, verdict.String())
	if verdict != report.Success {
		fmt.Fprintln(o.out, "Build completed with failures")
		return state.Report, errors.ErrChecksFailed
	}
	return state.Report, nil
}

// runSteps is the step sequence. A failed configure skips build and tests,
// a failed build skips tests. Analysis runs in every case because it only
// looks at the diff. Skipped steps leave no trace in the report.
func (o *Orchestrator) runSteps(ctx context.Context, state *runner.State) error {
	configured, err := o.runner.Run(ctx, classify.CMakeStep{Configurer: o.configurer}, state)
	if err != nil {
		return err
	}
	if configured == report.Success {
		built, err := o.runner.Run(ctx, classify.NinjaAll(o.exec, o.out), state)
		if err != nil {
			return err
		}
		if built == report.Success {
			if _, err := o.runner.Run(ctx, classify.NinjaCheckAll(o.exec, o.out), state); err != nil {
				return err
			}
		}
	}

	if o.checks.Tidy {
		step := classify.TidyStep{Analysis: classify.Analysis{Exec: o.exec, Base: o.checks.Base, Ignore: o.checks.TidyIgnore}}
		if _, err := o.runner.Run(ctx, step, state); err != nil {
			return err
		}
	}
	if o.checks.Format {
		step := classify.FormatStep{Analysis: classify.Analysis{Exec: o.exec, Base: o.checks.Base, Ignore: o.checks.FormatIgnore}}
		if _, err := o.runner.Run(ctx, step, state); err != nil {
			return err
		}
	}
	return nil
}
