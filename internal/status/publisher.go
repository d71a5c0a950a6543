// Package status publishes the outcome of a run: the build status and
// artifact links in Harbormaster, and the local files read by later
// pipeline stages.
package status

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/metrics"
	"github.com/felixgeelhaar/premerge/internal/phab"
	"github.com/felixgeelhaar/premerge/internal/report"
	"github.com/felixgeelhaar/premerge/internal/runner"
	"github.com/felixgeelhaar/premerge/internal/upload"
)

// Local files written next to the marker.
const (
	TimingsFile = "step_timings.json"
	MetricsFile = "step_metrics.prom"
)

// Target identifies the Harbormaster build target and the diff under test.
type Target struct {
	PHID   string // Empty disables remote reporting
	DiffID string
	Final  bool
}

// Publisher reports a finished run.
type Publisher struct {
	conduit      phab.Conduit
	uploader     upload.Uploader
	target       Target
	artifactsDir string
	logger       *log.Logger
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	now          func() time.Time
}

// Options configures a Publisher. Nil collaborators get no-op defaults.
type Options struct {
	Conduit      phab.Conduit
	Uploader     upload.Uploader
	Target       Target
	ArtifactsDir string
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer // Source of step_metrics.prom, skipped when nil
}

// NewPublisher creates a Publisher.
func NewPublisher(opts Options) *Publisher {
	if opts.Uploader == nil {
		opts.Uploader = upload.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = log.DefaultLogger()
	}
	return &Publisher{
		conduit:      opts.Conduit,
		uploader:     opts.Uploader,
		target:       opts.Target,
		artifactsDir: opts.ArtifactsDir,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
		now:          time.Now,
	}
}

// Begin marks the run as failed until Publish says otherwise, so a run that
// dies halfway leaves "failed" behind.
func (p *Publisher) Begin() error {
	return WriteMarker(p.artifactsDir, false)
}

// Publish sends the build status, uploads and links artifacts, then writes
// the timing, manifest and metrics files and finally the marker. Remote
// failures are logged and never change the verdict; the returned error only
// reports local files that could not be written.
func (p *Publisher) Publish(ctx context.Context, r *report.Report, timings runner.Timings) error {
	success := r.Success()
	p.recordFindings(r)

	if p.target.PHID == "" || p.conduit == nil {
		p.logger.Warn("No phabricator phid is specified. Will not update the build status in Phabricator")
	} else {
		p.publishRemote(ctx, r, success)
	}

	var errs []error
	if err := timings.Save(filepath.Join(p.artifactsDir, TimingsFile)); err != nil {
		errs = append(errs, err)
	}
	if err := BuildManifest(r, p.now()).Save(p.artifactsDir); err != nil {
		errs = append(errs, err)
	}
	if p.gatherer != nil {
		if err := metrics.WriteTextfile(filepath.Join(p.artifactsDir, MetricsFile), p.gatherer); err != nil {
			p.logger.WithError(err).Warn("cannot write step metrics")
		}
	}
	if err := WriteMarker(p.artifactsDir, success); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func (p *Publisher) publishRemote(ctx context.Context, r *report.Report, success bool) {
	err := p.conduit.UpdateBuildStatus(ctx, phab.BuildStatus{
		DiffID:     p.target.DiffID,
		TargetPHID: p.target.PHID,
		Final:      p.target.Final,
		Success:    success,
		Lint:       r.Lint,
		Unit:       r.Unit,
	})
	p.metrics.RecordStatusUpdate(err == nil)
	if err != nil {
		p.metrics.RecordError(string(errors.CodeOf(err)), "status")
		p.logger.LogError(ctx, "cannot update build status", err)
	}

	for _, a := range r.Artifacts {
		url, err := p.uploader.Upload(ctx, a.Dir, a.File)
		p.metrics.RecordUpload(err == nil)
		if err != nil {
			p.logger.WithError(err).Warn("artifact upload failed", "file", a.Path())
			continue
		}
		if url == "" {
			continue
		}
		if err := phab.MaybeAddURLArtifact(ctx, p.conduit, p.logger, p.target.PHID, url, a.Name); err != nil {
			p.logger.WithError(err).Warn("cannot link artifact", "name", a.Name, "url", url)
		}
	}
}

// recordFindings exports lint counts per tool and unit outcomes.
func (p *Publisher) recordFindings(r *report.Report) {
	if p.metrics == nil {
		return
	}
	perTool := map[string]int{}
	for _, f := range r.Lint {
		perTool[f.Name]++
	}
	tools := make([]string, 0, len(perTool))
	for tool := range perTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		p.metrics.RecordLint(tool, perTool[tool])
	}
	for _, u := range r.Unit {
		p.metrics.RecordUnit(string(u.Result))
	}
}
