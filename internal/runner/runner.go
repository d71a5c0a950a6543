package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/metrics"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/telemetry"
)

// Buildkite log markers.
const (
	sectionPrefix = "--- "
	expandSection = "^^^ +++"
)

// Runner executes steps one at a time.
type Runner struct {
	out     io.Writer
	logger  *log.Logger
	metrics *metrics.Metrics
	timings Timings
}

// Config holds the runner's collaborators. Nil fields get defaults.
type Config struct {
	Out     io.Writer // Buildkite log, stdout by default
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// New creates a Runner.
func New(cfg Config) *Runner {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.DefaultLogger()
	}
	return &Runner{
		out:     cfg.Out,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		timings: Timings{},
	}
}

// Run opens a log section, runs the step and records exactly one timing
// entry for it, also when the step returns an error. A Failure result
// expands the section in the Buildkite UI.
//
// Errors from the step are returned unchanged in meaning: the run is
// expected to abort.
func (r *Runner) Run(ctx context.Context, step Step, state *State) (report.CheckResult, error) {
	name := step.Name()
	fmt.Fprintf(r.out, "%s%s\n", sectionPrefix, name)

	ctx, span := telemetry.StartStepSpan(ctx, name)
	defer span.End()

	first := len(state.Report.Steps)
	start := time.Now()
	result, err := step.Run(ctx, state)
	elapsed := time.Since(start)
	r.timings.Record(name, elapsed)
	stampDuration(state.Report.Steps[first:], elapsed)

	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.RecordError(string(errors.CodeOf(err)), "runner")
		r.logger.WithError(err).Error("step aborted", "step", name, "elapsed", elapsed)
		return report.Unknown, fmt.Errorf("step %q: %w", name, err)
	}

	telemetry.RecordResult(span, result.String())
	r.metrics.RecordStep(name, result.String(), elapsed)
	r.logger.Info("step finished", "step", name, "result", result.String(), "elapsed", elapsed)

	if result == report.Failure {
		fmt.Fprintln(r.out, expandSection)
	}
	return result, nil
}

// stampDuration sets d on report steps that did not record their own tool
// duration.
func stampDuration(steps []report.Step, d time.Duration) {
	for i := range steps {
		if steps[i].Duration == 0 {
			steps[i].Duration = d
		}
	}
}

// Timings returns the per-step durations recorded so far.
func (r *Runner) Timings() Timings {
	return r.timings
}
