package upload

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/exec/exectest"
	"github.com/felixgeelhaar/premerge/internal/log"
)

var job = BuildkiteJob{Organization: "llvm-project", Pipeline: "premerge-checks", BuildNumber: "42", JobID: "job-1"}

func TestBuildkiteUpload(t *testing.T) {
	stderr := "2020-05-01 10:00:00 INFO   Found 1 files that match \"clang-tidy.txt\"\n" +
		"2020-05-01 10:00:00 INFO   Uploading artifact 0b1c2d3e clang-tidy.txt (1.2 KiB)\n"
	fake := exectest.New(map[string]exectest.Response{
		"buildkite-agent artifact upload clang-tidy.txt": {Stderr: stderr},
	})
	u := NewBuildkiteUploader(fake, job, log.Discard())

	url, err := u.Upload(context.Background(), "/work/artifacts", "clang-tidy.txt")
	require.NoError(t, err)
	assert.Equal(t,
		"https://buildkite.com/organizations/llvm-project/pipelines/premerge-checks/builds/42/jobs/job-1/artifacts/0b1c2d3e",
		url)
	assert.Equal(t, "/work/artifacts", fake.Calls[0].Dir)
}

func TestBuildkiteUploadNoMatch(t *testing.T) {
	fake := exectest.New(map[string]exectest.Response{
		"buildkite-agent": {ExitCode: 1, Stderr: "fatal: no files matched\n"},
	})
	url, err := NewBuildkiteUploader(fake, job, log.Discard()).Upload(context.Background(), "/b", "missing.xml")
	assert.Empty(t, url)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUploadNoMatch))
}

func TestBuildkiteUploadAgentMissing(t *testing.T) {
	fake := exectest.New(map[string]exectest.Response{"buildkite-agent": {Missing: true}})
	_, err := NewBuildkiteUploader(fake, job, log.Discard()).Upload(context.Background(), "/b", "x")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUploadFailed))
}

type memWriter struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (w *memWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestGCSUpload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ninja-all.log"), []byte("[1/1] done\n"), 0600))

	written := map[string]*memWriter{}
	u := &GCSUploader{
		bucket: "premerge-artifacts",
		prefix: "builds/42",
		logger: log.Discard(),
		newWriter: func(_ context.Context, object string) io.WriteCloser {
			w := &memWriter{}
			written[object] = w
			return w
		},
	}

	url, err := u.Upload(context.Background(), dir, "ninja-all.log")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/premerge-artifacts/builds/42/ninja-all.log", url)
	require.Contains(t, written, "builds/42/ninja-all.log")
	assert.Equal(t, "[1/1] done\n", written["builds/42/ninja-all.log"].String())
	assert.True(t, written["builds/42/ninja-all.log"].closed)
}

func TestGCSUploadErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0600))
	u := &GCSUploader{
		bucket: "b",
		logger: log.Discard(),
		newWriter: func(context.Context, string) io.WriteCloser {
			return &memWriter{closeErr: stderrors.New("permission denied")}
		},
	}

	_, err := u.Upload(context.Background(), dir, "a.txt")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUploadFailed))

	_, err = u.Upload(context.Background(), dir, "absent.txt")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUploadFailed))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain; charset=utf-8", contentType("x/clang-format.patch"))
	assert.Contains(t, contentType("test-results.xml"), "xml")
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}

func TestNopAndFormatURL(t *testing.T) {
	url, err := Nop{}.Upload(context.Background(), "d", "f")
	assert.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, "\033]1339;url='https://x'\a", FormatURL("https://x"))
}
