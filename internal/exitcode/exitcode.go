package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates that every recorded check passed
	Success = 0

	// ChecksFailed indicates a red verdict or a general error.
	// Buildkite marks the job as failed on any non-zero code.
	ChecksFailed = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates an invalid or unreadable configuration
	ConfigError = 3

	// AuthError indicates that the review system rejected our token
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// InfrastructureError indicates a step aborted the run (tool crashed, disk full, ...)
	InfrastructureError = 7

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if stderrors.Is(err, errors.ErrChecksFailed) {
		return ChecksFailed
	}

	switch code := errors.CodeOf(err); {
	case strings.HasPrefix(string(code), "CONFIG-"):
		return ConfigError
	case code == errors.ErrCodeReviewAuth:
		return AuthError
	case code == errors.ErrCodeReviewNetwork:
		return NetworkError
	case code == errors.ErrCodeExecInterrupted:
		return Interrupted
	case strings.HasPrefix(string(code), "EXEC-"), strings.HasPrefix(string(code), "IO-"):
		return InfrastructureError
	}

	errMsg := strings.ToLower(err.Error())

	// Usage errors
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}

	// Network errors
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return NetworkError
	}

	return ChecksFailed
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case ChecksFailed:
		return "Checks failed"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case InfrastructureError:
		return "Infrastructure error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
