// Package exectest provides a scripted exec.Runner for tests.
package exectest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
)

// Response is what a scripted command produces.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Output is written to the command's LogFile and Console when streaming.
	Output string
	// Missing makes the command behave as if the binary were not installed.
	Missing bool
	// Err is returned as an infrastructure error.
	Err error
	// Hook runs before the response is returned, e.g. to create files.
	Hook func(cmd exec.Command)
}

// Runner answers commands from a table keyed by "name arg0 arg1...".
// Lookup tries the full key first, then the bare command name.
type Runner struct {
	Responses map[string]Response
	Calls     []exec.Command
}

// New creates a Runner with the given responses.
func New(responses map[string]Response) *Runner {
	return &Runner{Responses: responses}
}

// Key renders a command the way Responses are keyed.
func Key(cmd exec.Command) string {
	return strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))
}

// Run implements exec.Runner.
func (r *Runner) Run(_ context.Context, cmd exec.Command) (*exec.Result, error) {
	r.Calls = append(r.Calls, cmd)

	resp, ok := r.Responses[Key(cmd)]
	if !ok {
		resp, ok = r.Responses[cmd.Name]
	}
	if !ok {
		return nil, fmt.Errorf("exectest: unexpected command %q", Key(cmd))
	}
	if resp.Missing {
		return nil, errors.NewToolMissingError(cmd.Name, nil)
	}
	if resp.Hook != nil {
		resp.Hook(cmd)
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	if cmd.Streaming() {
		if cmd.LogFile != "" {
			if err := os.MkdirAll(filepath.Dir(cmd.LogFile), 0750); err != nil {
				return nil, err
			}
			if err := os.WriteFile(cmd.LogFile, []byte(resp.Output), 0600); err != nil {
				return nil, err
			}
		}
		if cmd.Console != nil {
			_, _ = cmd.Console.Write(exec.FilterLines([]byte(resp.Output), cmd.Filters))
		}
	}

	return &exec.Result{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

// Called reports whether a command with the given name was run.
func (r *Runner) Called(name string) bool {
	for _, c := range r.Calls {
		if c.Name == name {
			return true
		}
	}
	return false
}
