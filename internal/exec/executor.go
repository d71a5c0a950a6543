package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

// LocalRunner runs commands on the agent itself.
type LocalRunner struct{}

// NewLocalRunner creates a runner for the local host.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// LookTool resolves a tool on PATH, returning a coded error when missing.
func LookTool(name string) (string, error) {
	path, err := osexec.LookPath(name)
	if err != nil {
		return "", errors.NewToolMissingError(name, err)
	}
	return path, nil
}

// Run executes cmd and waits for it to exit.
func (r *LocalRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	path, err := LookTool(cmd.Name)
	if err != nil {
		return nil, err
	}

	c := osexec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	var console *filterWriter
	if cmd.Streaming() {
		var sinks []io.Writer
		if cmd.LogFile != "" {
			f, err := createLog(cmd.LogFile)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			sinks = append(sinks, f)
		}
		if cmd.Console != nil {
			console = newFilterWriter(cmd.Console, cmd.Filters)
			sinks = append(sinks, console)
		}
		out := io.MultiWriter(sinks...)
		c.Stdout = out
		c.Stderr = out
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	start := time.Now()
	err = c.Run()
	duration := time.Since(start)
	if console != nil {
		console.Flush()
	}

	exitCode := 0
	if err != nil {
		var exitErr *osexec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, errors.Wrap(errors.ErrCodeExecInterrupted,
				fmt.Sprintf("%s interrupted", cmd.Name), ctx.Err())
		case stderrors.As(err, &exitErr):
			exitCode = exitErr.ExitCode()
		default:
			return nil, errors.Wrap(errors.ErrCodeExecStartFailed,
				fmt.Sprintf("failed to execute %s %s", cmd.Name, strings.Join(cmd.Args, " ")), err)
		}
	}

	return &Result{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

func createLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "create log directory", err)
	}
	f, err := os.Create(path) // #nosec G304 -- path comes from the artifacts dir
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExecLogFailed, fmt.Sprintf("create log %s", path), err)
	}
	return f, nil
}
