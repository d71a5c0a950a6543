package phab

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/premerge/internal/log"
	"github.com/felixgeelhaar/premerge/internal/report"
)

// Harbormaster message types.
const (
	MessagePass = "pass"
	MessageFail = "fail"
	MessageWork = "work"
)

// BuildStatus is one harbormaster.sendmessage update.
type BuildStatus struct {
	DiffID     string // For logging only
	TargetPHID string
	// Final concludes the build target. Non-final updates report "work"
	// and may be followed by more updates.
	Final   bool
	Success bool
	Lint    []report.LintFinding
	Unit    []report.UnitFinding
}

// Type returns the harbormaster message type.
func (s BuildStatus) Type() string {
	switch {
	case !s.Final:
		return MessageWork
	case s.Success:
		return MessagePass
	default:
		return MessageFail
	}
}

// Conduit is the subset of the review system used by the status reporter.
type Conduit interface {
	UpdateBuildStatus(ctx context.Context, status BuildStatus) error
	CreateArtifact(ctx context.Context, targetPHID, key, kind string, data map[string]any) error
}

// UpdateBuildStatus sends the verdict together with lint and unit findings.
func (c *Client) UpdateBuildStatus(ctx context.Context, s BuildStatus) error {
	params := map[string]any{
		"buildTargetPHID": s.TargetPHID,
		"type":            s.Type(),
	}
	if len(s.Lint) > 0 {
		params["lint"] = s.Lint
	}
	if len(s.Unit) > 0 {
		params["unit"] = s.Unit
	}
	c.logger.Info("updating build status",
		"diff", s.DiffID, "target", s.TargetPHID, "type", s.Type(),
		"lint", len(s.Lint), "unit", len(s.Unit))
	return c.Call(ctx, "harbormaster.sendmessage", params, nil)
}

// CreateArtifact attaches an artifact to a build target.
func (c *Client) CreateArtifact(ctx context.Context, targetPHID, key, kind string, data map[string]any) error {
	return c.Call(ctx, "harbormaster.createartifact", map[string]any{
		"buildTargetPHID": targetPHID,
		"artifactKey":     key,
		"artifactType":    kind,
		"artifactData":    data,
	}, nil)
}

// MaybeAddURLArtifact links url on the build target under a random key. An
// empty PHID only logs a warning.
func MaybeAddURLArtifact(ctx context.Context, c Conduit, logger *log.Logger, phid, url, name string) error {
	if phid == "" {
		logger.Warn("PHID is not provided, cannot create URL artifact", "name", name)
		return nil
	}
	return c.CreateArtifact(ctx, phid, uuid.NewString(), "uri", map[string]any{
		"uri":         url,
		"ui.external": true,
		"name":        name,
	})
}
