package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "premerge",
	Short: "Premerge checks for Phabricator diffs",
	Long: `premerge configures, builds and tests an LLVM checkout on a Buildkite agent,
runs clang-format and clang-tidy on the changed lines, and reports the verdict,
lint and unit results to the Harbormaster build of the diff under review.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, cancelled on interrupt.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./.premerge.yaml)")
	flags.String("log-level", "WARNING", "log level: DEBUG, INFO, WARNING, ERROR")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("otel-endpoint", "", "OTLP/HTTP collector (host:port) to export run traces to")
	flags.Bool("dry-run", false, "log Conduit requests instead of sending them")
}
