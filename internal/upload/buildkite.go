package upload

import (
	"context"
	"fmt"
	"regexp"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec"
	"github.com/felixgeelhaar/premerge/internal/log"
)

var uploadedArtifact = regexp.MustCompile(`Uploading artifact ([^ ]*) `)

// BuildkiteJob identifies the job whose artifacts are linked.
type BuildkiteJob struct {
	Organization string
	Pipeline     string
	BuildNumber  string
	JobID        string
}

// BuildkiteUploader uploads through the local buildkite-agent.
type BuildkiteUploader struct {
	exec   exec.Runner
	job    BuildkiteJob
	logger *log.Logger
}

// NewBuildkiteUploader creates an uploader for job.
func NewBuildkiteUploader(runner exec.Runner, job BuildkiteJob, logger *log.Logger) *BuildkiteUploader {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &BuildkiteUploader{exec: runner, job: job, logger: logger}
}

// Upload implements Uploader. The artifact id is read from the agent's
// progress output.
func (u *BuildkiteUploader) Upload(ctx context.Context, dir, file string) (string, error) {
	res, err := u.exec.Run(ctx, exec.Command{
		Name: "buildkite-agent",
		Args: []string{"artifact", "upload", file},
		Dir:  dir,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUploadFailed, "upload "+file, err)
	}
	u.logger.Debug("artifact upload finished", "file", file, "exit_code", res.ExitCode)

	m := uploadedArtifact.FindStringSubmatch(res.Stderr)
	if m == nil {
		return "", errors.New(errors.ErrCodeUploadNoMatch,
			fmt.Sprintf("could not find artifact %s/%s", dir, file))
	}
	url := u.job.ArtifactURL(m[1])
	u.logger.Info("uploaded artifact", "file", file, "url", url)
	return url, nil
}

// ArtifactURL returns the Buildkite UI link of an artifact of this job.
func (j BuildkiteJob) ArtifactURL(id string) string {
	return fmt.Sprintf("https://buildkite.com/organizations/%s/pipelines/%s/builds/%s/jobs/%s/artifacts/%s",
		j.Organization, j.Pipeline, j.BuildNumber, j.JobID, id)
}
