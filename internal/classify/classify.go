// Package classify turns raw tool output into step results and findings.
//
// Every classifier records its own step in the report. A tool that cannot
// be started or an input file that is absent is reported as a Failure with
// an explanatory message; only interruption and I/O problems on the
// artifacts directory are returned as errors.
package classify

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/report"
)

// AddShellResult records name with a result derived from exitCode and an
// empty message.
func AddShellResult(r *report.Report, name string, exitCode int) report.CheckResult {
	log.DefaultLogger().Info("command exited", "step", name, "exit_code", exitCode)
	result := report.FromExitCode(exitCode)
	r.AddStep(name, result, "")
	return result
}

// invoke runs cmd. When the tool could not be started it returns a
// diagnostic message instead of an error.
func invoke(ctx context.Context, runner exec.Runner, cmd exec.Command) (*exec.Result, string, error) {
	res, err := runner.Run(ctx, cmd)
	if err == nil {
		return res, "", nil
	}
	switch errors.CodeOf(err) {
	case errors.ErrCodeExecToolMissing:
		return nil, fmt.Sprintf("%s is not installed on this agent", cmd.Name), nil
	case errors.ErrCodeExecStartFailed:
		log.DefaultLogger().WithError(err).Warn("tool failed to start", "tool", cmd.Name)
		return nil, fmt.Sprintf("could not start %s", cmd.Name), nil
	}
	return nil, "", err
}

// worse returns the more severe of two results.
func worse(a, b report.CheckResult) report.CheckResult {
	if a == report.Failure || b == report.Failure {
		return report.Failure
	}
	if a == report.Unknown || b == report.Unknown {
		return report.Unknown
	}
	return report.Success
}
