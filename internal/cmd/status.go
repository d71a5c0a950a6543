package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/status"
	"github.com/felixgeelhaar/premerge/internal/upload"
)

var setStatusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Send the final build status to Harbormaster",
	Long: `Send a final pass or fail message for ph_target_phid.

With --markers, the verdict is read from the build_result.txt files the
per-OS builds left behind: the build passed when at least one marker matches
and every marker says "succeeded". Without it, --success decides.

Examples:
  # Report step of the build-branch pipeline
  premerge set-status --markers "artifacts/build_result_*.txt"

  # Manual override
  premerge set-status --success
`,
	Args: cobra.NoArgs,
	RunE: runSetStatus,
}

func init() {
	setStatusCmd.Flags().Bool("success", false, "report a passing build")
	setStatusCmd.Flags().String("markers", "", "glob of build_result.txt files to compute the verdict from")
	setStatusCmd.Flags().String("conduit-url", "https://reviews.llvm.org/api/", "Conduit API endpoint")

	rootCmd.AddCommand(setStatusCmd)
}

func runSetStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	success, _ := cmd.Flags().GetBool("success")
	markers, _ := cmd.Flags().GetString("markers")
	return setStatus(cmd, s, s.conduit(), success, markers)
}

func setStatus(cmd *cobra.Command, s *session, conduit phab.Conduit, success bool, markers string) error {
	var markerErr error
	if markers != "" {
		var count int
		success, count, markerErr = status.ReadMarkers(markers)
		if markerErr != nil {
			// Still report, a missing marker means a build died early.
			s.logger.WithError(markerErr).Warn("cannot evaluate build results, reporting a failure")
			success = false
		} else {
			s.logger.Info("evaluated build results", "markers", count, "success", success)
		}
	}

	if s.cfg.Target.BuildID != "" {
		url := fmt.Sprintf("https://reviews.llvm.org/harbormaster/build/%s", s.cfg.Target.BuildID)
		fmt.Fprintf(cmd.OutOrStdout(), "Reporting results to Phabricator build %s\n", upload.FormatURL(url))
	}

	if !s.cfg.RemoteEnabled() {
		s.logger.Warn("No phabricator phid is specified. Will not update the build status in Phabricator")
		return markerErr
	}
	err := conduit.UpdateBuildStatus(cmd.Context(), phab.BuildStatus{
		DiffID:     s.cfg.Target.DiffID,
		TargetPHID: s.cfg.Target.PHID,
		Final:      true,
		Success:    success,
	})
	if err != nil {
		return err
	}
	return markerErr
}
