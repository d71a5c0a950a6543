package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/log"
)

// Result is the outcome of a configure run.
type Result struct {
	ExitCode  int
	BuildDir  string
	Artifacts []string // Files worth keeping, they may not exist
}

// Configurer produces a build directory for a checkout.
type Configurer interface {
	Configure(ctx context.Context, workDir string) (*Result, error)
}

// CMake runs cmake with the Ninja generator.
type CMake struct {
	exec     exec.Runner
	config   *Config
	goos     string
	projects string
	out      io.Writer
	logger   *log.Logger

	// lookPath finds an optional compiler cache.
	lookPath func(string) (string, error)
}

// Options for NewCMake.
type Options struct {
	Config   *Config
	GOOS     string // "linux" or "windows"
	Projects string // Semicolon separated, or "default"
	Out      io.Writer
	Logger   *log.Logger
}

// NewCMake creates a configurer.
func NewCMake(runner exec.Runner, opts Options) *CMake {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	return &CMake{
		exec:     runner,
		config:   opts.Config,
		goos:     opts.GOOS,
		projects: opts.Projects,
		out:      opts.Out,
		logger:   opts.Logger,
		lookPath: exec.LookTool,
	}
}

// Configure wipes <workDir>/build and runs cmake in it against the llvm
// source tree. A non-zero cmake exit code is reported in Result, not as an
// error.
func (c *CMake) Configure(ctx context.Context, workDir string) (*Result, error) {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExecBuildDirFail, "resolve work directory", err)
	}
	buildDir := filepath.Join(abs, "build")
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExecBuildDirFail, "remove build directory", err)
	}
	if err := os.MkdirAll(buildDir, 0750); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExecBuildDirFail, "create build directory", err)
	}

	projects := c.config.Projects(c.projects, c.goos)
	fmt.Fprintf(c.out, "Enabled projects: %s\n", projects)

	args := []string{filepath.Join(abs, "llvm")}
	args = append(args, c.config.Args(c.goos)...)
	args = append(args, "-DLLVM_ENABLE_PROJECTS="+projects)
	args = append(args, c.launcherArgs()...)
	fmt.Fprintf(c.out, "Running cmake with these arguments:\ncmake %s\n", strings.Join(args, " "))

	res, err := c.exec.Run(ctx, exec.Command{
		Name: "cmake",
		Args: args,
		Dir:  buildDir,
		Env:  c.config.Env(c.goos),
	})
	if err != nil {
		return &Result{BuildDir: buildDir}, err
	}
	if res.Stdout != "" || res.Stderr != "" {
		fmt.Fprint(c.out, res.Stdout, res.Stderr)
	}

	c.linkCompileCommands(abs, buildDir)

	return &Result{
		ExitCode: res.ExitCode,
		BuildDir: buildDir,
		Artifacts: []string{
			filepath.Join(buildDir, "CMakeCache.txt"),
			filepath.Join(buildDir, "CMakeFiles", "CMakeOutput.log"),
			filepath.Join(buildDir, "CMakeFiles", "CMakeError.log"),
		},
	}, nil
}

// launcherArgs enables a compiler cache when one is installed.
func (c *CMake) launcherArgs() []string {
	for _, tool := range []string{"sccache", "ccache"} {
		if _, err := c.lookPath(tool); err == nil {
			c.logger.Info("using compiler cache", "tool", tool)
			return []string{
				"-DCMAKE_C_COMPILER_LAUNCHER=" + tool,
				"-DCMAKE_CXX_COMPILER_LAUNCHER=" + tool,
			}
		}
	}
	return nil
}

// linkCompileCommands exposes compile_commands.json at the repository root
// so clang-tidy finds it. Best effort.
func (c *CMake) linkCompileCommands(workDir, buildDir string) {
	if c.goos == "windows" {
		return
	}
	src := filepath.Join(buildDir, "compile_commands.json")
	if _, err := os.Stat(src); err != nil {
		return
	}
	dst := filepath.Join(workDir, "compile_commands.json")
	_ = os.Remove(dst)
	if err := os.Symlink(src, dst); err != nil {
		c.logger.Warn("cannot link compile commands", "error", err)
	}
}
