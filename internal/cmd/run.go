package cmd

import (
	"context"
	"io"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/buildsys"
	"github.com/felixgeelhaar/premerge/internal/classify"
	"github.com/felixgeelhaar/premerge/internal/config"
	"github.com/felixgeelhaar/premerge/internal/detect"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/metrics"
	"github.com/felixgeelhaar/premerge/internal/orchestrator"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/runner"
	"github.com/felixgeelhaar/premerge/internal/status"
	"github.com/felixgeelhaar/premerge/internal/upload"
)

var runCmd = &cobra.Command{
	Use:   "run [checkout]",
	Short: "Run the premerge checks in a checkout",
	Long: `Configure, build and test the checkout (default: the current directory),
optionally run clang-format and clang-tidy on the lines changed against --base,
then report to Phabricator.

Build and test output goes to stdout in Buildkite log sections; full logs, the
test report, step timings and build_result.txt are written to ./artifacts.

Environment:
  CONDUIT_TOKEN          Conduit API token
  ph_target_phid         Harbormaster build target; reporting is skipped without it
  ph_buildable_diff      diff under test
  ph_buildable_revision  revision of the diff
  BUILDKITE_*            job identity, used for the summary and artifact links

Examples:
  # Full linux run as the premerge pipeline does it
  premerge run --check-clang-format --check-clang-tidy

  # One of several per-OS builds, the report step sends the final status
  premerge run --intermediate-status
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChecks,
}

func init() {
	flags := runCmd.Flags()
	flags.Bool("check-clang-format", false, "run clang-format on the changed lines")
	flags.Bool("check-clang-tidy", false, "run clang-tidy on the changed lines")
	flags.String("base", classify.DefaultBase, "revision the analysis diffs against")
	flags.String("ignore-mode", string(classify.IgnoreGitignore), "ignore file syntax: gitignore, glob or prefix")
	flags.String("format-ignore", ".clang-format-ignore", "paths excluded from clang-format, relative to the checkout")
	flags.String("tidy-ignore", ".clang-tidy-ignore", "paths excluded from clang-tidy, relative to the checkout")
	flags.String("projects", "default", "LLVM_ENABLE_PROJECTS value, or default for the configured list")
	flags.String("cmake-config", "", "cmake arguments file (default is the built-in configuration)")
	flags.Bool("intermediate-status", false, "report a work status instead of pass/fail")
	flags.String("uploader", config.UploadAuto, "artifact hosting: auto, buildkite, gcs or none")
	flags.String("gcs-bucket", "", "bucket for the gcs uploader")
	flags.String("gcs-prefix", "", "object prefix for the gcs uploader")
	flags.String("conduit-url", "https://reviews.llvm.org/api/", "Conduit API endpoint")

	rootCmd.AddCommand(runCmd)
}

func runChecks(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(); err != nil {
		return err
	}

	workDir := "."
	if len(args) == 1 {
		workDir = args[0]
	}
	workDir, err = filepath.Abs(workDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "resolve checkout", err)
	}

	ctx := cmd.Context()
	uploader, closeUploader, err := newUploader(ctx, s, exec.NewLocalRunner())
	if err != nil {
		return err
	}
	defer closeUploader()

	orch, err := newOrchestrator(s, workDir, cmd.OutOrStdout(), exec.NewLocalRunner(), uploader)
	if err != nil {
		return err
	}
	_, err = orch.Run(ctx, workDir)
	return err
}

// newOrchestrator wires a run from the configuration.
func newOrchestrator(s *session, workDir string, out io.Writer, runner exec.Runner, uploader upload.Uploader) (*orchestrator.Orchestrator, error) {
	cfg := s.cfg

	env := detect.DetectAll(detect.RequiredTools(cfg.Checks.Format, cfg.Checks.Tidy))
	s.logger.Debug("agent environment", "summary", env.Summary())
	if missing := env.Missing(); len(missing) > 0 {
		s.logger.Warn("tools not found, their steps will fail", "tools", missing)
	}

	checks, err := loadChecks(cfg.Checks, workDir)
	if err != nil {
		return nil, err
	}

	cmakeCfg, err := buildsys.LoadConfig(cfg.Build.CMakeConfig)
	if err != nil {
		return nil, err
	}
	cmake := buildsys.NewCMake(runner, buildsys.Options{
		Config:   cmakeCfg,
		GOOS:     env.OS,
		Projects: cfg.Build.Projects,
		Out:      out,
		Logger:   s.logger,
	})

	registry, m := metrics.NewRegistry()

	var conduit phab.Conduit
	if cfg.RemoteEnabled() {
		conduit = s.conduit()
	}

	publisher := status.NewPublisher(status.Options{
		Conduit:  conduit,
		Uploader: uploader,
		Target: status.Target{
			PHID:   cfg.Target.PHID,
			DiffID: cfg.Target.DiffID,
			Final:  !cfg.Build.Intermediate,
		},
		ArtifactsDir: filepath.Join(workDir, orchestrator.ArtifactsDir),
		Logger:       s.logger,
		Metrics:      m,
		Gatherer:     registry,
	})

	return orchestrator.New(orchestrator.Options{
		Runner:     newStepRunner(out, s, m),
		Exec:       runner,
		Configurer: cmake,
		Publisher:  publisher,
		Conduit:    conduit,
		Checks:     checks,
		Build:      buildInfo(cfg),
		Out:        out,
		Logger:     s.logger,
	}), nil
}

func newStepRunner(out io.Writer, s *session, m *metrics.Metrics) *runner.Runner {
	return runner.New(runner.Config{Out: out, Logger: s.logger, Metrics: m})
}

// loadChecks reads the ignore files of the enabled analysis steps.
func loadChecks(cfg config.ChecksConfig, workDir string) (orchestrator.Checks, error) {
	checks := orchestrator.Checks{Format: cfg.Format, Tidy: cfg.Tidy, Base: cfg.Base}

	mode, err := classify.ParseIgnoreMode(cfg.IgnoreMode)
	if err != nil {
		return checks, err
	}
	if cfg.Format {
		if checks.FormatIgnore, err = classify.LoadIgnore(mode, inCheckout(workDir, cfg.FormatIgnore)); err != nil {
			return checks, err
		}
	}
	if cfg.Tidy {
		if checks.TidyIgnore, err = classify.LoadIgnore(mode, inCheckout(workDir, cfg.TidyIgnore)); err != nil {
			return checks, err
		}
	}
	return checks, nil
}

func inCheckout(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workDir, path)
}

func buildInfo(cfg *config.Config) orchestrator.BuildInfo {
	return orchestrator.BuildInfo{
		Branch:                cfg.Buildkite.Branch,
		Repo:                  cfg.Buildkite.Repo,
		URL:                   cfg.Buildkite.BuildURL,
		TargetPHID:            cfg.Target.PHID,
		DiffID:                cfg.Target.DiffID,
		RevisionID:            cfg.Target.RevisionID,
		TriggeredFromPipeline: cfg.Buildkite.TriggeredFromPipeline,
		TriggeredFromBuild:    cfg.Buildkite.TriggeredFromBuild,
	}
}

// newUploader selects the artifact host. The returned close function is
// always safe to call.
func newUploader(ctx context.Context, s *session, runner exec.Runner) (upload.Uploader, func(), error) {
	noop := func() {}
	switch s.cfg.UploadBackend() {
	case config.UploadBuildkite:
		bk := s.cfg.Buildkite
		return upload.NewBuildkiteUploader(runner, upload.BuildkiteJob{
			Organization: bk.Organization,
			Pipeline:     bk.Pipeline,
			BuildNumber:  bk.BuildNumber,
			JobID:        bk.JobID,
		}, s.logger), noop, nil
	case config.UploadGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, errors.Wrap(errors.ErrCodeUploadFailed, "create storage client", err).
				WithSuggestion("Set GOOGLE_APPLICATION_CREDENTIALS or run on a GCE agent with a service account")
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				s.logger.WithError(err).Warn("cannot close storage client")
			}
		}
		return upload.NewGCSUploader(client, s.cfg.Upload.GCSBucket, s.cfg.Upload.GCSPrefix, s.logger), closeClient, nil
	default:
		return upload.Nop{}, noop, nil
	}
}
