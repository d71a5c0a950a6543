package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/premerge/internal/cmd"
	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exitcode"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// Check if error was due to context cancellation (e.g., agent stopping the job)
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			exitcode.Exit(exitcode.Interrupted)
		}

		// A red verdict was already printed in the summary.
		if !stderrors.Is(err, errors.ErrChecksFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
