package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Print Buildkite pipelines",
	Long: `Print a Buildkite pipeline document to stdout, for use with

  premerge pipeline build-branch | buildkite-agent pipeline upload`,
}

var buildBranchCmd = &cobra.Command{
	Use:   "build-branch",
	Short: "Per-OS builds of a phab-diff branch followed by the report step",
	Args:  cobra.NoArgs,
	RunE:  runBuildBranch,
}

var createBranchCmd = &cobra.Command{
	Use:   "create-branch",
	Short: "Apply the diff on a new branch and trigger the builds",
	Args:  cobra.NoArgs,
	RunE:  runCreateBranch,
}

func init() {
	buildBranchCmd.Flags().String("scripts-repo", pipeline.DefaultScriptsRepo, "repository the build steps fetch premerge from")
	buildBranchCmd.Flags().String("windows-queue", pipeline.DefaultWindowsQueue, "agent queue of the windows build")

	pipelineCmd.AddCommand(buildBranchCmd, createBranchCmd)
	rootCmd.AddCommand(pipelineCmd)
}

func runBuildBranch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	repo, _ := cmd.Flags().GetString("scripts-repo")
	windowsQueue, _ := cmd.Flags().GetString("windows-queue")
	p := pipeline.BuildBranch(pipeline.BuildOptions{
		Queue:        s.cfg.Buildkite.Queue,
		WindowsQueue: windowsQueue,
		ScriptsRepo:  repo,
	})
	return p.Write(cmd.OutOrStdout())
}

func runCreateBranch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	env := pipeline.EnvMap(os.Environ())
	s.logger.Debug("forwarding phabricator variables", "vars", pipeline.ForwardedVars(env))
	if s.cfg.Target.DiffID == "" {
		s.logger.Warn("ph_buildable_diff is not set, the branch name will be incomplete")
	}
	p := pipeline.CreateBranch(pipeline.CreateOptions{
		Queue:  s.cfg.Buildkite.Queue,
		DiffID: s.cfg.Target.DiffID,
		Env:    env,
	})
	return p.Write(cmd.OutOrStdout())
}
