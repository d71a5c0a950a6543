// Package runner executes named steps in sequence, times them and marks
// failed sections in the Buildkite log.
package runner

import (
	"context"

	"github.com/felixgeelhaar/premerge/internal/report"
)

// State is threaded through every step of a run. Steps communicate through
// it instead of package-level variables: the configure step sets BuildDir,
// later steps read it.
type State struct {
	Report       *report.Report
	WorkDir      string // Repository checkout
	ArtifactsDir string // Files uploaded by the agent
	BuildDir     string // Set by the configure step
}

// NewState creates a state with an empty report.
func NewState(workDir, artifactsDir string) *State {
	return &State{
		Report:       report.New(),
		WorkDir:      workDir,
		ArtifactsDir: artifactsDir,
	}
}

// Step is one unit of orchestrated work.
//
// Run records its outcome in state.Report and returns it. A returned error
// means the step could not be evaluated at all (infrastructure failure) and
// aborts the run; tool failures are reported as report.Failure instead.
type Step interface {
	Name() string
	Run(ctx context.Context, state *State) (report.CheckResult, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, state *State) (report.CheckResult, error)
}

// Func creates a Step from a function.
func Func(name string, fn func(ctx context.Context, state *State) (report.CheckResult, error)) Step {
	return StepFunc{StepName: name, Fn: fn}
}

// Name implements Step.
func (s StepFunc) Name() string { return s.StepName }

// Run implements Step.
func (s StepFunc) Run(ctx context.Context, state *State) (report.CheckResult, error) {
	return s.Fn(ctx, state)
}
