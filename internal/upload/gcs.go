package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/log"
)

// GCSUploader stores artifacts in a Google Cloud Storage bucket under
// <prefix>/<file>.
type GCSUploader struct {
	bucket string
	prefix string
	logger *log.Logger

	newWriter func(ctx context.Context, object string) io.WriteCloser
}

// NewGCSUploader creates an uploader using client. Objects are expected to be
// publicly readable through the bucket's policy.
func NewGCSUploader(client *storage.Client, bucket, prefix string, logger *log.Logger) *GCSUploader {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	handle := client.Bucket(bucket)
	return &GCSUploader{
		bucket: bucket,
		prefix: prefix,
		logger: logger,
		newWriter: func(ctx context.Context, object string) io.WriteCloser {
			w := handle.Object(object).NewWriter(ctx)
			w.ContentType = contentType(object)
			return w
		},
	}
}

// Upload implements Uploader.
func (u *GCSUploader) Upload(ctx context.Context, dir, file string) (string, error) {
	f, err := os.Open(filepath.Join(dir, file)) // #nosec G304 -- artifact recorded by the run
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUploadFailed, "open "+file, err)
	}
	defer f.Close()

	object := path.Join(u.prefix, filepath.ToSlash(file))
	w := u.newWriter(ctx, object)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", errors.Wrap(errors.ErrCodeUploadFailed, "write gs://"+u.bucket+"/"+object, err)
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeUploadFailed, "finalize gs://"+u.bucket+"/"+object, err)
	}

	url := fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, object)
	u.logger.Info("uploaded artifact", "file", file, "url", url)
	return url, nil
}

func contentType(name string) string {
	switch ext := path.Ext(name); ext {
	case ".log", ".txt", ".patch", ".prom":
		return "text/plain; charset=utf-8"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
