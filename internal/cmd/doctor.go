package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/premerge/internal/detect"
	"github.com/felixgeelhaar/premerge/internal/errors"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the agent has the tools a run needs",
	Long: `Print the detected OS, CI system, git checkout and tool versions.

Exits non-zero when a tool needed by the selected checks is missing.

Examples:
  premerge doctor --check-clang-format --check-clang-tidy
`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().Bool("check-clang-format", false, "also require clang-format-diff")
	doctorCmd.Flags().Bool("check-clang-tidy", false, "also require clang-tidy-diff")

	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := detect.DetectAll(detect.RequiredTools(s.cfg.Checks.Format, s.cfg.Checks.Tidy))
	fmt.Fprint(cmd.OutOrStdout(), ctx.Summary())

	if missing := ctx.Missing(); len(missing) > 0 {
		return errors.NewToolMissingError(missing[0], nil).
			WithSuggestion(fmt.Sprintf("Install the missing tools: %v", missing))
	}
	return nil
}
