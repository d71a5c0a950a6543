package status

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

// MarkerFile is read by the aggregation step that merges results from all
// operating systems.
const MarkerFile = "build_result.txt"

// Marker values. The file holds exactly one of them with no newline.
const (
	MarkerSucceeded = "succeeded"
	MarkerFailed    = "failed"
)

// WriteMarker writes the marker for success into dir.
func WriteMarker(dir string, success bool) error {
	value := MarkerFailed
	if success {
		value = MarkerSucceeded
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create artifacts directory", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MarkerFile), []byte(value), 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write build result marker", err)
	}
	return nil
}

// ReadMarkers evaluates every marker file matching pattern. The build
// succeeded when at least one marker exists and all of them say so.
func ReadMarkers(pattern string) (success bool, count int, err error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return false, 0, errors.Wrap(errors.ErrCodeConfigInvalid, "bad marker pattern "+pattern, err)
	}
	if len(paths) == 0 {
		return false, 0, errors.New(errors.ErrCodeReportMarkerAbsent, "no build result markers match "+pattern).
			WithSuggestion("Check that the build steps downloaded their build_result.txt artifacts")
	}
	success = true
	for _, p := range paths {
		data, err := os.ReadFile(p) // #nosec G304 -- paths from the operator's glob
		if err != nil {
			return false, 0, errors.Wrap(errors.ErrCodeFileReadFailed, "read marker "+p, err)
		}
		if strings.TrimSpace(string(data)) != MarkerSucceeded {
			success = false
		}
	}
	return success, len(paths), nil
}
