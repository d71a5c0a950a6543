package status

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/premerge/internal/errors"
	"github.com/felixgeelhaar/premerge/internal/report"
)

// ManifestFile lists what a run produced.
const ManifestFile = "manifest.json"

// Manifest records the verdict, steps and artifact digests of a run.
type Manifest struct {
	Timestamp time.Time          `json:"timestamp"`
	Verdict   string             `json:"verdict"`
	Steps     []ManifestStep     `json:"steps"`
	Artifacts []ManifestArtifact `json:"artifacts"`
	Tests     report.TestStats   `json:"tests"`
	Lint      int                `json:"lint_findings"`
}

// ManifestStep is a recorded step.
type ManifestStep struct {
	Name    string `json:"name"`
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// ManifestArtifact describes one artifact file. Missing files have no digest.
type ManifestArtifact struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	BLAKE3  string `json:"blake3,omitempty"`
	Missing bool   `json:"missing,omitempty"`
}

// BuildManifest hashes every artifact of r. Unreadable artifacts are
// marked missing.
func BuildManifest(r *report.Report, now time.Time) *Manifest {
	m := &Manifest{
		Timestamp: now.UTC(),
		Verdict:   r.Verdict().String(),
		Steps:     make([]ManifestStep, 0, len(r.Steps)),
		Artifacts: make([]ManifestArtifact, 0, len(r.Artifacts)),
		Tests:     r.TestStats,
		Lint:      len(r.Lint),
	}
	for _, s := range r.Steps {
		m.Steps = append(m.Steps, ManifestStep{Name: s.Name, Result: s.Result.String(), Message: s.Message})
	}
	for _, a := range r.Artifacts {
		entry := ManifestArtifact{Name: a.Name, Path: a.Path()}
		if digest, size, err := HashFile(a.Path()); err == nil {
			entry.BLAKE3, entry.Size = digest, size
		} else {
			entry.Missing = true
		}
		m.Artifacts = append(m.Artifacts, entry)
	}
	return m
}

// Save writes the manifest as indented JSON into dir.
func (m *Manifest) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileMarshal, "marshal manifest", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "create manifest directory", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteFailed, "write manifest", err)
	}
	return nil
}

// HashFile returns the hex BLAKE3 digest and size of a file.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path) // #nosec G304 -- artifact recorded by the run
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeFileReadFailed, "hash "+path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
