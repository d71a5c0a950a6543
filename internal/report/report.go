// Package report accumulates the outcome of a premerge run: the ordered steps,
// the artifacts to publish and the lint and unit findings sent to the review
// system.
//
// A Report is mutated by exactly one goroutine at a time. It is not safe for
// concurrent use.
package report

import (
	"fmt"
	"strings"
	"time"
)

// CheckResult is the tri-state outcome of a step.
type CheckResult int

const (
	// Unknown means the step ran but could not decide.
	Unknown CheckResult = iota
	// Success means the step passed.
	Success
	// Failure means the step failed.
	Failure
)

// String returns the string representation of the result
func (c CheckResult) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Failure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Mark returns the single character used in the run summary.
func (c CheckResult) Mark() string {
	switch c {
	case Success:
		return "V"
	case Failure:
		return "X"
	default:
		return "?"
	}
}

// FromExitCode maps a process exit code to a result.
func FromExitCode(code int) CheckResult {
	if code == 0 {
		return Success
	}
	return Failure
}

// Step is one recorded unit of work.
type Step struct {
	Name    string
	Result  CheckResult
	Message string
	// Duration of the step; the runner fills it in when the step did not
	// time its tool itself.
	Duration time.Duration
}

// Artifact references a file produced during the run.
type Artifact struct {
	Dir  string
	File string
	Name string
}

// Path joins Dir and File.
func (a Artifact) Path() string {
	if a.Dir == "" {
		return a.File
	}
	return strings.TrimRight(a.Dir, "/\\") + "/" + a.File
}

// TestStats counts test cases by outcome.
type TestStats struct {
	Pass int `json:"pass"`
	Fail int `json:"fail"`
	Skip int `json:"skip"`
}

// Total returns the number of counted test cases.
func (s TestStats) Total() int {
	return s.Pass + s.Fail + s.Skip
}

// Report is the aggregate root of a run.
type Report struct {
	Steps     []Step
	Artifacts []Artifact
	Lint      []LintFinding
	Unit      []UnitFinding
	TestStats TestStats
}

// New returns an empty report.
func New() *Report {
	return &Report{}
}

// AddStep appends a step. Steps with the same name are appended, not merged.
func (r *Report) AddStep(name string, result CheckResult, message string) {
	r.AddTimedStep(name, result, message, 0)
}

// AddTimedStep appends a step together with the duration of the tool run.
func (r *Report) AddTimedStep(name string, result CheckResult, message string, d time.Duration) {
	r.Steps = append(r.Steps, Step{
		Name:     name,
		Result:   result,
		Message:  message,
		Duration: d,
	})
}

// AddArtifact appends an artifact reference. The file is not checked.
func (r *Report) AddArtifact(dir, file, name string) {
	r.Artifacts = append(r.Artifacts, Artifact{Dir: dir, File: file, Name: name})
}

// AddLint appends lint findings.
func (r *Report) AddLint(findings ...LintFinding) {
	r.Lint = append(r.Lint, findings...)
}

// AddUnit appends unit findings and updates TestStats.
func (r *Report) AddUnit(findings ...UnitFinding) {
	for _, f := range findings {
		switch f.Result {
		case UnitPass:
			r.TestStats.Pass++
		case UnitFail, UnitBroken:
			r.TestStats.Fail++
		case UnitSkip:
			r.TestStats.Skip++
		}
	}
	r.Unit = append(r.Unit, findings...)
}

// Verdict is Success iff every recorded step is Success.
// Steps that were skipped are never recorded and do not count.
func (r *Report) Verdict() CheckResult {
	for _, s := range r.Steps {
		if s.Result != Success {
			return Failure
		}
	}
	return Success
}

// Success reports whether Verdict is Success.
func (r *Report) Success() bool {
	return r.Verdict() == Success
}

// StepNames returns the recorded step names in run order.
func (r *Report) StepNames() []string {
	names := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		names = append(names, s.Name)
	}
	return names
}

// Find returns the first recorded step with the given name.
func (r *Report) Find(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

func (r *Report) String() string {
	return fmt.Sprintf("Report{steps: %d, artifacts: %d, lint: %d, unit: %d, tests: %+v}",
		len(r.Steps), len(r.Artifacts), len(r.Lint), len(r.Unit), r.TestStats)
}
