package orchestrator

import (
	"fmt"

	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/upload"
)

// BuildInfo describes where the run comes from. Empty fields are omitted
// from the summary.
type BuildInfo struct {
	Branch     string
	Repo       string
	URL        string // This build, linked on the build target
	TargetPHID string
	DiffID     string
	RevisionID string

	TriggeredFromPipeline string
	TriggeredFromBuild    string
}

// ReviewURL links the diff on Phabricator, or "" when unknown.
func (b BuildInfo) ReviewURL() string {
	if b.DiffID == "" {
		return ""
	}
	return fmt.Sprintf("https://reviews.llvm.org/D%s?id=%s", b.RevisionID, b.DiffID)
}

// TriggeredFromURL links the parent build, or "" when not triggered.
func (b BuildInfo) TriggeredFromURL() string {
	if b.TriggeredFromBuild == "" {
		return ""
	}
	return fmt.Sprintf("https://buildkite.com/llvm-project/%s/builds/%s", b.TriggeredFromPipeline, b.TriggeredFromBuild)
}

func (o *Orchestrator) writeSummary(r *report.Report) {
	fmt.Fprintln(o.out, "+++ summary")
	fmt.Fprintf(o.out, "Branch %s at %s\n", o.build.Branch, o.build.Repo)
	if u := o.build.ReviewURL(); u != "" {
		fmt.Fprintf(o.out, "Review: %s\n", upload.FormatURL(u))
	}
	if u := o.build.TriggeredFromURL(); u != "" {
		fmt.Fprintf(o.out, "Triggered from build %s\n", upload.FormatURL(u))
	}
	o.logger.Debug("final report", "report", r.String())
	r.WriteSummary(o.out)
}
