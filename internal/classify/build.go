package classify

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/felixgeelhaar/premerge/internal/buildsys"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
)

// Console denylists. The log files keep every line.
var (
	buildNoise = []*regexp.Regexp{
		regexp.MustCompile(`\[.*\] (Building|Linking|Copying|Generating|Creating)`),
	}
	checkNoise = []*regexp.Regexp{
		regexp.MustCompile(`^\[.*\] (Building|Linking)`),
		regexp.MustCompile(`^(PASS|XFAIL|UNSUPPORTED):`),
	}
)

// CMakeStep configures the build and records the "cmake" step. It sets
// state.BuildDir and copies the configure logs into the artifacts directory.
type CMakeStep struct {
	Configurer buildsys.Configurer
}

// Name implements runner.Step.
func (CMakeStep) Name() string { return "cmake" }

// Run implements runner.Step.
func (s CMakeStep) Run(ctx context.Context, state *runner.State) (report.CheckResult, error) {
	res, err := s.Configurer.Configure(ctx, state.WorkDir)
	if res != nil {
		state.BuildDir = res.BuildDir
	}
	if err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrCodeExecToolMissing, errors.ErrCodeExecStartFailed:
			state.Report.AddStep(s.Name(), report.Failure, "cmake could not be started")
			return report.Failure, nil
		}
		return report.Unknown, err
	}

	for _, file := range res.Artifacts {
		if err := copyIfExists(file, state.ArtifactsDir); err != nil {
			return report.Unknown, err
		}
	}
	return AddShellResult(state.Report, s.Name(), res.ExitCode), nil
}

// NinjaStep builds a ninja target in state.BuildDir. The full output goes to
// <artifacts>/<LogName>, the console gets a filtered copy.
type NinjaStep struct {
	Exec    exec.Runner
	Console io.Writer
	Target  string // "all"
	Title   string // "ninja all"
	LogName string // "ninja-all.log"
	Filters []*regexp.Regexp
}

// NinjaAll returns the compile step.
func NinjaAll(runner exec.Runner, console io.Writer) NinjaStep {
	return NinjaStep{
		Exec:    runner,
		Console: console,
		Target:  "all",
		Title:   "ninja all",
		LogName: "ninja-all.log",
		Filters: buildNoise,
	}
}

// Name implements runner.Step.
func (s NinjaStep) Name() string { return s.Title }

// Run implements runner.Step.
func (s NinjaStep) Run(ctx context.Context, state *runner.State) (report.CheckResult, error) {
	return s.build(ctx, state)
}

func (s NinjaStep) build(ctx context.Context, state *runner.State) (report.CheckResult, error) {
	if state.BuildDir == "" {
		return report.Unknown, errors.New(errors.ErrCodeExecBuildDirFail, "no build directory configured")
	}
	console := s.Console
	if console == nil {
		console = io.Discard
	}
	fmt.Fprintf(console, "Full log will be available in Artifacts %q\n", s.LogName)

	res, msg, err := invoke(ctx, s.Exec, exec.Command{
		Name:    "ninja",
		Args:    []string{s.Target},
		Dir:     state.BuildDir,
		LogFile: filepath.Join(state.ArtifactsDir, s.LogName),
		Console: console,
		Filters: s.Filters,
	})
	if err != nil {
		return report.Unknown, err
	}
	if msg != "" {
		state.Report.AddStep(s.Title, report.Failure, msg)
		return report.Failure, nil
	}
	return AddShellResult(state.Report, s.Title, res.ExitCode), nil
}

// CheckAllStep runs the test target and classifies its JUnit report.
type CheckAllStep struct {
	NinjaStep
	ResultsFile string // Relative to the build directory
}

// NinjaCheckAll returns the build-and-test step.
func NinjaCheckAll(runner exec.Runner, console io.Writer) CheckAllStep {
	return CheckAllStep{
		NinjaStep: NinjaStep{
			Exec:    runner,
			Console: console,
			Target:  "check-all",
			Title:   "ninja check all",
			LogName: "ninja-check-all.log",
			Filters: checkNoise,
		},
		ResultsFile: "test-results.xml",
	}
}

// Run records "ninja check all" from the exit code and then "test results"
// from the report file. It returns Failure when either failed.
func (s CheckAllStep) Run(ctx context.Context, state *runner.State) (report.CheckResult, error) {
	built, err := s.build(ctx, state)
	if err != nil {
		return built, err
	}
	state.Report.AddArtifact(state.BuildDir, s.ResultsFile, "test results")
	tested := ClassifyTestResults(state.Report, filepath.Join(state.BuildDir, s.ResultsFile))
	return worse(built, tested), nil
}

func copyIfExists(src, dstDir string) error {
	data, err := os.ReadFile(src) // #nosec G304 -- files produced by the build
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeFileReadFailed, "read "+src, err)
	}
	if err := os.MkdirAll(dstDir, 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create artifacts directory", err)
	}
	if err := os.WriteFile(filepath.Join(dstDir, filepath.Base(src)), data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "copy "+src, err)
	}
	return nil
}
