package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
)

const formatHint = "Please format your changes with clang-format by running `git-clang-format HEAD^` or applying patch."

// FormatStep checks that changed lines are clang-formatted.
type FormatStep struct {
	Analysis
}

// Name implements runner.Step.
func (FormatStep) Name() string { return "clang-format" }

// Run implements runner.Step. Each hunk of the suggested patch becomes an
// autofix lint finding and the patch is kept as clang-format.patch.
func (s FormatStep) Run(ctx context.Context, state *runner.State) (report.CheckResult, error) {
	diff, msg, err := s.changes(ctx, state)
	if err != nil {
		return report.Unknown, err
	}
	if msg != "" {
		return failStep(state, s.Name(), msg), nil
	}
	if len(diff) == 0 {
		state.Report.AddStep(s.Name(), report.Success, "")
		return report.Success, nil
	}

	res, msg, err := invoke(ctx, s.Exec, exec.Command{
		Name:  "clang-format-diff",
		Args:  []string{"-p0"},
		Dir:   state.WorkDir,
		Stdin: diff,
	})
	if err != nil {
		return report.Unknown, err
	}
	if msg != "" {
		return failStep(state, s.Name(), msg), nil
	}

	findings := ParseFormatPatch([]byte(res.Stdout), s.Ignore)
	if len(findings) == 0 {
		if res.ExitCode != 0 {
			return failStep(state, s.Name(), fmt.Sprintf("clang-format-diff exited with %d: %s",
				res.ExitCode, strings.TrimSpace(res.Stderr))), nil
		}
		state.Report.AddStep(s.Name(), report.Success, "")
		return report.Success, nil
	}

	if err := writeArtifact(state, "clang-format.patch", []byte(res.Stdout)); err != nil {
		return report.Unknown, err
	}
	state.Report.AddLint(findings...)
	state.Report.AddStep(s.Name(), report.Failure, formatHint)
	return report.Failure, nil
}

// ParseFormatPatch turns a clang-format-diff patch into one finding per hunk,
// skipping files matched by ignore.
func ParseFormatPatch(patch []byte, ignore *Ignore) []report.LintFinding {
	var findings []report.LintFinding
	for _, f := range ParseUnifiedDiff(patch) {
		if ignore.Match(f.Path()) {
			continue
		}
		for _, h := range f.Hunks {
			findings = append(findings, report.LintFinding{
				Name:        "clang-format",
				Code:        "clang-format",
				Severity:    report.SeverityAutofix,
				Path:        normalizePath(f.Path()),
				Line:        h.OldStart,
				Char:        1,
				Description: "please reformat the code\n```\n" + strings.Join(h.Lines, "\n") + "\n```",
			})
		}
	}
	return findings
}
