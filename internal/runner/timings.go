package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

// Timings maps a step name to its elapsed seconds. Diagnostics only.
type Timings map[string]float64

// Record stores d for name, replacing an earlier value.
func (t Timings) Record(name string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	t[name] = d.Seconds()
}

// Save writes the timings as a flat JSON object.
func (t Timings) Save(path string) error {
	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "marshal step timings", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create timings directory", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write step timings", err)
	}
	return nil
}

// LoadTimings reads a file written by Save.
func LoadTimings(path string) (Timings, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read step timings", err)
	}
	t := Timings{}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errors.NewFileUnmarshalError(path, "JSON", err)
	}
	return t, nil
}
