package orchestrator

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/premerge/internal/buildsys"
	"github.com/felixgeelhaar/premerge/internal/classify"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/exec/exectest"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
	"github.com/felixgeelhaar/premerge/internal/status"
)

const twoPassed = `<testsuites><testsuite>` +
	`<testcase classname="LLVM" name="a.ll" time="0.1"/>` +
	`<testcase classname="LLVM" name="b.ll" time="0.2"/>` +
	`</testsuite></testsuites>`

type cmakeFake struct {
	exitCode int
	err      error
}

func (c cmakeFake) Configure(_ context.Context, workDir string) (*buildsys.Result, error) {
	buildDir := filepath.Join(workDir, "build")
	if err := os.MkdirAll(buildDir, 0750); err != nil {
		return nil, err
	}
	return &buildsys.Result{ExitCode: c.exitCode, BuildDir: buildDir}, c.err
}

type conduitFake struct{ calls int }

func (c *conduitFake) UpdateBuildStatus(context.Context, phab.BuildStatus) error {
	c.calls++
	return nil
}

func (c *conduitFake) CreateArtifact(context.Context, string, string, string, map[string]any) error {
	c.calls++
	return nil
}

func writeResults(cmd exec.Command) {
	_ = os.WriteFile(filepath.Join(cmd.Dir, "test-results.xml"), []byte(twoPassed), 0600)
}

type fixture struct {
	work    string
	out     *bytes.Buffer
	exec    *exectest.Runner
	runner  *runner.Runner
	conduit *conduitFake
}

func newFixture(t *testing.T, responses map[string]exectest.Response) *fixture {
	t.Helper()
	out := &bytes.Buffer{}
	return &fixture{
		work:    t.TempDir(),
		out:     out,
		exec:    exectest.New(responses),
		runner:  runner.New(runner.Config{Out: out, Logger: log.Discard()}),
		conduit: &conduitFake{},
	}
}

func (f *fixture) orchestrator(configurer buildsys.Configurer, checks Checks, build BuildInfo) *Orchestrator {
	publisher := status.NewPublisher(status.Options{
		Conduit:      f.conduit,
		Target:       status.Target{PHID: build.TargetPHID, DiffID: build.DiffID, Final: true},
		ArtifactsDir: filepath.Join(f.work, ArtifactsDir),
		Logger:       log.Discard(),
	})
	return New(Options{
		Runner:     f.runner,
		Exec:       f.exec,
		Configurer: configurer,
		Publisher:  publisher,
		Conduit:    f.conduit,
		Checks:     checks,
		Build:      build,
		Out:        f.out,
		Logger:     log.Discard(),
	})
}

func (f *fixture) marker(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.work, ArtifactsDir, status.MarkerFile))
	require.NoError(t, err)
	return string(data)
}

func results(r *report.Report) map[string]report.CheckResult {
	m := map[string]report.CheckResult{}
	for _, s := range r.Steps {
		m[s.Name] = s.Result
	}
	return m
}

func TestConfigureFailureSkipsBuildAndTests(t *testing.T) {
	f := newFixture(t, nil)

	r, err := f.orchestrator(cmakeFake{exitCode: 1}, Checks{}, BuildInfo{}).Run(context.Background(), f.work)
	require.ErrorIs(t, err, errors.ErrChecksFailed)

	require.Len(t, r.Steps, 1)
	assert.Equal(t, "cmake", r.Steps[0].Name)
	assert.Equal(t, report.Failure, r.Steps[0].Result)
	assert.Empty(t, r.Steps[0].Message)
	assert.Equal(t, report.Failure, r.Verdict())
	assert.Equal(t, "failed", f.marker(t))
	assert.Empty(t, f.exec.Calls)
	assert.Equal(t, []string{"cmake"}, keys(f.runner.Timings()))
	assert.Contains(t, f.out.String(), "--- cmake\n^^^ +++\n")
	assert.Contains(t, f.out.String(), "X cmake\n")
	assert.Contains(t, f.out.String(), "Build completed with failures")
}

func TestGreenRun(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"ninja all":       {Output: "[1/1] Linking CXX executable bin/opt\n"},
		"ninja check-all": {Output: "PASS: LLVM :: a.ll\n", Hook: writeResults},
	})
	build := BuildInfo{
		Branch: "phab-diff-99", Repo: "https://github.com/llvm/llvm-project",
		DiffID: "99", RevisionID: "12345",
	}

	r, err := f.orchestrator(cmakeFake{}, Checks{}, build).Run(context.Background(), f.work)
	require.NoError(t, err)

	assert.Equal(t, []string{"cmake", "ninja all", "ninja check all", classify.TestResultsStep}, r.StepNames())
	assert.Equal(t, report.Success, results(r)["ninja check all"])
	assert.Len(t, r.Unit, 2)
	assert.Equal(t, report.Success, r.Verdict())
	assert.Equal(t, "succeeded", f.marker(t))
	for _, s := range r.Steps {
		assert.Positive(t, s.Duration, "step %q has no duration", s.Name)
	}

	out := f.out.String()
	assert.Contains(t, out, "+++ summary\nBranch phab-diff-99 at https://github.com/llvm/llvm-project\n")
	assert.Contains(t, out, "https://reviews.llvm.org/D12345?id=99")
	assert.Contains(t, out, "V test results: 2 tests passed, 0 failed and 0 were skipped.\n")
	assert.NotContains(t, out, "Build completed with failures")
	assert.NotContains(t, out, "^^^ +++")
	assert.Zero(t, f.conduit.calls, "no target PHID means no remote calls")

	assert.FileExists(t, filepath.Join(f.work, ArtifactsDir, status.TimingsFile))
	assert.FileExists(t, filepath.Join(f.work, ArtifactsDir, "ninja-all.log"))
}

func TestMissingTestReport(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"ninja all":       {},
		"ninja check-all": {},
	})

	r, err := f.orchestrator(cmakeFake{}, Checks{}, BuildInfo{}).Run(context.Background(), f.work)
	require.ErrorIs(t, err, errors.ErrChecksFailed)

	step, ok := r.Find(classify.TestResultsStep)
	require.True(t, ok)
	assert.Equal(t, report.Failure, step.Result)
	assert.NotEmpty(t, step.Message)
	assert.Equal(t, report.Failure, r.Verdict())
}

func TestBuildFailureSkipsTestsButRunsAnalysis(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"ninja all":                       {ExitCode: 1},
		"git diff -U0 --no-prefix HEAD~1": {Stdout: ""},
	})

	r, err := f.orchestrator(cmakeFake{}, Checks{Format: true, Tidy: true}, BuildInfo{}).Run(context.Background(), f.work)
	require.ErrorIs(t, err, errors.ErrChecksFailed)

	assert.Equal(t, []string{"cmake", "ninja all", "clang-tidy", "clang-format"}, r.StepNames())
	assert.NotContains(t, calledKeys(f.exec), "ninja check-all")
}

func TestAnalysisRunsAfterConfigureFailure(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"git diff -U0 --no-prefix HEAD~1": {Stdout: ""},
	})

	r, err := f.orchestrator(cmakeFake{exitCode: 1}, Checks{Format: true}, BuildInfo{}).Run(context.Background(), f.work)
	require.ErrorIs(t, err, errors.ErrChecksFailed)

	assert.Equal(t, []string{"cmake", "clang-format"}, r.StepNames())
	assert.Equal(t, report.Success, results(r)["clang-format"])
}

func TestInfrastructureErrorAborts(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"ninja all": {Err: errors.New(errors.ErrCodeExecInterrupted, "ninja interrupted")},
	})

	r, err := f.orchestrator(cmakeFake{}, Checks{Format: true}, BuildInfo{}).Run(context.Background(), f.work)
	require.Error(t, err)
	assert.False(t, stderrors.Is(err, errors.ErrChecksFailed))
	assert.True(t, errors.HasCode(err, errors.ErrCodeExecInterrupted))

	assert.Equal(t, []string{"cmake"}, r.StepNames())
	assert.Contains(t, f.runner.Timings(), "ninja all")
	assert.Equal(t, "failed", f.marker(t), "an aborted run keeps the initial marker")
	assert.NotContains(t, f.out.String(), "+++ summary")
}

func TestRemoteReportingWithTarget(t *testing.T) {
	f := newFixture(t, map[string]exectest.Response{
		"ninja all":       {},
		"ninja check-all": {Hook: writeResults},
	})
	build := BuildInfo{URL: "https://buildkite.com/llvm-project/premerge-checks/builds/1", TargetPHID: "PHID-HMBT-1"}

	_, err := f.orchestrator(cmakeFake{}, Checks{}, build).Run(context.Background(), f.work)
	require.NoError(t, err)

	// The build link and the status update. Nop uploads return no URL to link.
	assert.Equal(t, 2, f.conduit.calls)
}

func TestBuildInfoURLs(t *testing.T) {
	assert.Empty(t, BuildInfo{}.ReviewURL())
	assert.Empty(t, BuildInfo{}.TriggeredFromURL())
	assert.Equal(t, "https://buildkite.com/llvm-project/premerge-checks/builds/7",
		BuildInfo{TriggeredFromPipeline: "premerge-checks", TriggeredFromBuild: "7"}.TriggeredFromURL())
}

func calledKeys(r *exectest.Runner) []string {
	out := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		out = append(out, exectest.Key(c))
	}
	return out
}

func keys(t runner.Timings) []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	return out
}
