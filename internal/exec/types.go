package exec

import (
	"context"
	"io"
	"regexp"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	Name  string   // Binary name or path
	Args  []string // Arguments
	Dir   string   // Working directory, empty for the current one
	Env   []string // Extra KEY=VALUE pairs appended to the inherited environment
	Stdin []byte   // Fed to the process when non-nil

	// LogFile receives the complete combined output when set.
	LogFile string
	// Console receives the combined output minus lines matching Filters.
	Console io.Writer
	// Filters is a denylist for Console output; LogFile is never filtered.
	Filters []*regexp.Regexp
}

// Streaming reports whether output goes to a log file or console instead
// of being captured in Result.
func (c Command) Streaming() bool {
	return c.LogFile != "" || c.Console != nil
}

// Result represents the outcome of a command.
// Stdout and Stderr are empty for streaming commands.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner runs commands. A non-zero exit code is not an error; errors are
// reserved for commands that could not run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
