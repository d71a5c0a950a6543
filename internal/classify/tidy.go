package classify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
)

var (
	tidyDiagnostic = regexp.MustCompile(`^((?:[A-Za-z]:)?[^:]*):(\d+):(\d+): ([^:]*): (.*)$`)
	tidyCheckName  = regexp.MustCompile(`\s*\[([\w.,-]+)\]$`)
)

// TidyStep runs clang-tidy on changed lines.
type TidyStep struct {
	Analysis
}

// Name implements runner.Step.
func (TidyStep) Name() string { return "clang-tidy" }

// Run implements runner.Step. The raw output is kept as clang-tidy.txt.
func (s TidyStep) Run(ctx context.Context, state *runner.State) (report.CheckResult, error) {
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

	args := []string{"-p0", "-quiet"}
	if state.BuildDir != "" {
		args = append(args, "-path", state.BuildDir)
	}
	res, msg, err := invoke(ctx, s.Exec, exec.Command{
		Name:  "clang-tidy-diff",
		Args:  args,
		Dir:   state.WorkDir,
		Stdin: diff,
	})
	if err != nil {
		return report.Unknown, err
	}
	if msg != "" {
		return failStep(state, s.Name(), msg), nil
	}
	if err := writeArtifact(state, "clang-tidy.txt", []byte(res.Stdout)); err != nil {
		return report.Unknown, err
	}

	// clang-tidy-diff exits non-zero for any error diagnostic, ignored or
	// not. Only a non-zero exit without diagnostics means the tool broke.
	findings, diagnostics := parseTidy([]byte(res.Stdout), state.WorkDir, s.Ignore)
	if len(findings) == 0 {
		if res.ExitCode != 0 && diagnostics == 0 {
			return failStep(state, s.Name(), fmt.Sprintf("clang-tidy-diff exited with %d", res.ExitCode)), nil
		}
		state.Report.AddStep(s.Name(), report.Success, "")
		return report.Success, nil
	}

	state.Report.AddLint(findings...)
	var errs, warns int
	for _, f := range findings {
		if f.Severity == report.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	state.Report.AddStep(s.Name(), report.Failure,
		fmt.Sprintf("clang-tidy found %d errors and %d warnings. Details are in clang-tidy.txt.", errs, warns))
	return report.Failure, nil
}

// ParseTidyOutput extracts warnings and errors from clang-tidy output. Paths
// are made relative to root; findings in ignored paths and exact duplicates
// (headers seen from several translation units) are dropped. Lines following
// a diagnostic, such as the source excerpt, are appended to its description.
func ParseTidyOutput(out []byte, root string, ignore *Ignore) []report.LintFinding {
	findings, _ := parseTidy(out, root, ignore)
	return findings
}

// parseTidy also returns the number of warnings and errors seen before
// ignore filtering and deduplication.
func parseTidy(out []byte, root string, ignore *Ignore) ([]report.LintFinding, int) {
	var (
		diagnostics int
		findings []report.LintFinding
		seen     = map[report.LintFinding]bool{}
		cur      *report.LintFinding
		excerpt  []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		if len(excerpt) > 0 {
			cur.Description += "\n```\n" + strings.Join(excerpt, "\n") + "\n```"
		}
		if !seen[*cur] {
			seen[*cur] = true
			findings = append(findings, *cur)
		}
		cur, excerpt = nil, nil
	}

	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		m := tidyDiagnostic.FindStringSubmatch(line)
		if m == nil {
			if cur != nil && strings.TrimSpace(line) != "" {
				excerpt = append(excerpt, line)
			}
			continue
		}
		flush()

		severity := strings.TrimSpace(m[4])
		if severity != report.SeverityWarning && severity != report.SeverityError {
			continue
		}
		diagnostics++
		path := relativeTo(root, m[1])
		if ignore.Match(path) {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		char, _ := strconv.Atoi(m[3])
		text, code := m[5], "clang-tidy"
		if cm := tidyCheckName.FindStringSubmatch(text); cm != nil {
			code = cm[1]
			text = strings.TrimSpace(strings.TrimSuffix(text, cm[0]))
		}
		cur = &report.LintFinding{
			Name:        "clang-tidy",
			Code:        code,
			Severity:    severity,
			Path:        path,
			Line:        lineNo,
			Char:        char,
			Description: text,
		}
	}
	flush()
	return findings, diagnostics
}
