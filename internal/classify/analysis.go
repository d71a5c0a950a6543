package classify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
)

// DefaultBase is the revision analysis diffs against: the commit below the
// change under review.
const DefaultBase = "HEAD~1"

// Analysis holds what both static-analysis steps need.
type Analysis struct {
	Exec   exec.Runner
	Base   string  // Revision to diff against, DefaultBase when empty
	Ignore *Ignore // Paths excluded from the diff and from findings
}

// changes returns the zero-context diff against the base with ignored files
// removed. A failing git is reported through msg.
func (a Analysis) changes(ctx context.Context, state *runner.State) (diff []byte, msg string, err error) {
	base := a.Base
	if base == "" {
		base = DefaultBase
	}
	res, msg, err := invoke(ctx, a.Exec, exec.Command{
		Name: "git",
		Args: []string{"diff", "-U0", "--no-prefix", base},
		Dir:  state.WorkDir,
	})
	if err != nil || msg != "" {
		return nil, msg, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Sprintf("git diff against %s failed: %s", base, strings.TrimSpace(res.Stderr)), nil
	}
	return FilterDiff([]byte(res.Stdout), a.Ignore), "", nil
}

// writeArtifact stores data in the artifacts directory and registers it.
func writeArtifact(state *runner.State, file string, data []byte) error {
	if err := os.MkdirAll(state.ArtifactsDir, 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create artifacts directory", err)
	}
	if err := os.WriteFile(filepath.Join(state.ArtifactsDir, file), data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write "+file, err)
	}
	state.Report.AddArtifact(state.ArtifactsDir, file, file)
	return nil
}

// relativeTo makes p relative to root when it lies inside it.
func relativeTo(root, p string) string {
	if root == "" || !filepath.IsAbs(p) {
		return normalizePath(p)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return normalizePath(p)
	}
	rel, err := filepath.Rel(absRoot, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return normalizePath(p)
	}
	return normalizePath(rel)
}

func failStep(state *runner.State, name, msg string) report.CheckResult {
	state.Report.AddStep(name, report.Failure, msg)
	return report.Failure
}
