package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/premerge/internal/config"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec/exectest"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/orchestrator"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/status"
	"github.com/felixgeelhaar/premerge/internal/upload"
)

type statusRecorder struct {
	statuses []phab.BuildStatus
	err      error
}

func (r *statusRecorder) UpdateBuildStatus(_ context.Context, s phab.BuildStatus) error {
	r.statuses = append(r.statuses, s)
	return r.err
}

func (r *statusRecorder) CreateArtifact(context.Context, string, string, string, map[string]any) error {
	return nil
}

func testSession(cfg *config.Config) *session {
	return &session{cfg: cfg, logger: log.Discard(), shutdown: func(context.Context) error { return nil }}
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetContext(context.Background())
	return c, &out
}

func writeMarkers(t *testing.T, values ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, v := range values {
		path := filepath.Join(dir, "build_result_"+string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(path, []byte(v), 0600))
	}
	return filepath.Join(dir, "build_result_*.txt")
}

func TestSetStatus(t *testing.T) {
	target := config.TargetConfig{PHID: "PHID-HMBT-1", DiffID: "42", BuildID: "777"}

	tests := []struct {
		name        string
		success     bool
		markers     []string
		useMarkers  bool
		wantSuccess bool
		wantCode    errors.ErrorCode
	}{
		{name: "flag success", success: true, wantSuccess: true},
		{name: "flag failure", success: false, wantSuccess: false},
		{name: "all markers succeeded", useMarkers: true, markers: []string{"succeeded", "succeeded"}, wantSuccess: true},
		{name: "one marker failed", success: true, useMarkers: true, markers: []string{"succeeded", "failed"}, wantSuccess: false},
		{name: "no markers", success: true, useMarkers: true, wantSuccess: false, wantCode: errors.ErrCodeReportMarkerAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conduit := &statusRecorder{}
			c, out := testCommand()
			pattern := ""
			if tt.useMarkers {
				pattern = writeMarkers(t, tt.markers...)
			}

			err := setStatus(c, testSession(&config.Config{Target: target}), conduit, tt.success, pattern)
			if tt.wantCode != "" {
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, conduit.statuses, 1)
			assert.Equal(t, phab.BuildStatus{DiffID: "42", TargetPHID: "PHID-HMBT-1", Final: true, Success: tt.wantSuccess},
				conduit.statuses[0])
			assert.Contains(t, out.String(), "Reporting results to Phabricator build")
			assert.Contains(t, out.String(), "https://reviews.llvm.org/harbormaster/build/777")
		})
	}
}

func TestSetStatusWithoutTarget(t *testing.T) {
	conduit := &statusRecorder{}
	c, _ := testCommand()

	require.NoError(t, setStatus(c, testSession(&config.Config{}), conduit, true, ""))
	assert.Empty(t, conduit.statuses)
}

func TestSetStatusReportsConduitErrors(t *testing.T) {
	conduit := &statusRecorder{err: errors.New(errors.ErrCodeReviewAuth, "bad token")}
	c, _ := testCommand()

	err := setStatus(c, testSession(&config.Config{Target: config.TargetConfig{PHID: "PHID-HMBT-1"}}), conduit, true, "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeReviewAuth))
}

func TestLoadChecks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clang-tidy-ignore"), []byte("# generated\nthird_party/\n"), 0600))

	checks, err := loadChecks(config.ChecksConfig{
		Format: true, Tidy: true, Base: "origin/main", IgnoreMode: "gitignore",
		FormatIgnore: ".clang-format-ignore", TidyIgnore: ".clang-tidy-ignore",
	}, dir)
	require.NoError(t, err)

	assert.True(t, checks.Format)
	assert.True(t, checks.Tidy)
	assert.Equal(t, "origin/main", checks.Base)
	assert.Empty(t, checks.FormatIgnore.Patterns(), "a missing ignore file ignores nothing")
	assert.Equal(t, []string{"third_party/"}, checks.TidyIgnore.Patterns())
	assert.True(t, checks.TidyIgnore.Match("third_party/zlib/inflate.c"))

	_, err = loadChecks(config.ChecksConfig{IgnoreMode: "regex"}, dir)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestInCheckout(t *testing.T) {
	assert.Equal(t, "", inCheckout("/src", ""))
	assert.Equal(t, "/etc/ignore", inCheckout("/src", "/etc/ignore"))
	assert.Equal(t, filepath.Join("/src", ".clang-format-ignore"), inCheckout("/src", ".clang-format-ignore"))
}

func TestBuildInfo(t *testing.T) {
	cfg := &config.Config{
		Target: config.TargetConfig{PHID: "PHID-HMBT-1", DiffID: "42", RevisionID: "12345"},
		Buildkite: config.BuildkiteConfig{
			Branch:                "phab-diff-42",
			Repo:                  "https://github.com/llvm/llvm-project",
			BuildURL:              "https://buildkite.com/llvm-project/premerge-checks/builds/9",
			TriggeredFromBuild:    "8",
			TriggeredFromPipeline: "diff-checks",
		},
	}

	info := buildInfo(cfg)
	assert.Equal(t, "https://reviews.llvm.org/D12345?id=42", info.ReviewURL())
	assert.Equal(t, "https://buildkite.com/llvm-project/diff-checks/builds/8", info.TriggeredFromURL())
	assert.Equal(t, "PHID-HMBT-1", info.TargetPHID)
	assert.Equal(t, cfg.Buildkite.BuildURL, info.URL)
}

func TestNewUploader(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want any
	}{
		{"none", config.Config{Upload: config.UploadConfig{Backend: config.UploadNone}}, upload.Nop{}},
		{"auto outside buildkite", config.Config{Upload: config.UploadConfig{Backend: config.UploadAuto}}, upload.Nop{}},
		{
			name: "auto in a buildkite job",
			cfg: config.Config{
				Upload:    config.UploadConfig{Backend: config.UploadAuto},
				Buildkite: config.BuildkiteConfig{BuildNumber: "9", JobID: "job-1"},
			},
			want: &upload.BuildkiteUploader{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			u, closeFn, err := newUploader(context.Background(), testSession(&cfg), exectest.New(nil))
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tt.want, u)
		})
	}
}

func TestNewOrchestratorRunsWithoutCMake(t *testing.T) {
	work := t.TempDir()
	cfg := &config.Config{
		Checks: config.ChecksConfig{IgnoreMode: "gitignore"},
		Build:  config.BuildConfig{Projects: "default"},
	}
	runner := exectest.New(map[string]exectest.Response{"cmake": {Missing: true}})
	var out bytes.Buffer

	orch, err := newOrchestrator(testSession(cfg), work, &out, runner, upload.Nop{})
	require.NoError(t, err)

	r, err := orch.Run(context.Background(), work)
	require.ErrorIs(t, err, errors.ErrChecksFailed)
	require.Len(t, r.Steps, 1)
	assert.Equal(t, "cmake", r.Steps[0].Name)
	assert.Equal(t, report.Failure, r.Steps[0].Result)
	assert.Equal(t, "cmake could not be started", r.Steps[0].Message)

	artifacts := filepath.Join(work, orchestrator.ArtifactsDir)
	marker, err := os.ReadFile(filepath.Join(artifacts, status.MarkerFile))
	require.NoError(t, err)
	assert.Equal(t, status.MarkerFailed, string(marker))
	assert.FileExists(t, filepath.Join(artifacts, status.MetricsFile))
	assert.FileExists(t, filepath.Join(artifacts, status.TimingsFile))
	assert.Contains(t, out.String(), "--- cmake")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}

func TestPipelineBuildBranchCommand(t *testing.T) {
	t.Setenv("BUILDKITE_AGENT_META_DATA_QUEUE", "premerge-linux")

	out, err := execute(t, "pipeline", "build-branch")
	require.NoError(t, err)

	assert.Contains(t, out, "key: build-linux")
	assert.Contains(t, out, "queue: premerge-linux")
	assert.Contains(t, out, "allow_dependency_failure: true")
}

func TestPipelineCreateBranchCommand(t *testing.T) {
	t.Setenv("ph_buildable_diff", "314")
	t.Setenv("ph_target_phid", "PHID-HMBT-9")

	out, err := execute(t, "pipeline", "create-branch")
	require.NoError(t, err)

	assert.Contains(t, out, "branch: phab-diff-314")
	assert.Contains(t, out, "ph_target_phid: PHID-HMBT-9")
	assert.Contains(t, out, "trigger: premerge-checks-win")
}

func TestAddURLArtifactRequiresFlags(t *testing.T) {
	_, err := execute(t, "add-url-artifact", "--name", "Buildkite build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "url" not set`)
}
