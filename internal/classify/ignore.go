package classify

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	pathspec "github.com/shibumi/go-pathspec"

	"github.com/felixgeelhaar/premerge/internal/errors"
)

// IgnoreMode selects how ignore patterns are matched against paths.
type IgnoreMode string

const (
	// IgnoreGitignore uses .gitignore pattern semantics, including negation.
	IgnoreGitignore IgnoreMode = "gitignore"
	// IgnoreGlob matches the whole path, or the base name for patterns
	// without a slash.
	IgnoreGlob IgnoreMode = "glob"
	// IgnorePrefix matches paths that start with the pattern.
	IgnorePrefix IgnoreMode = "prefix"
)

// ParseIgnoreMode validates a mode name. Empty selects IgnoreGitignore.
func ParseIgnoreMode(s string) (IgnoreMode, error) {
	switch m := IgnoreMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return IgnoreGitignore, nil
	case IgnoreGitignore, IgnoreGlob, IgnorePrefix:
		return m, nil
	default:
		return "", errors.NewConfigInvalidError("unknown ignore mode " + s).
			WithSuggestion("Use one of: gitignore, glob, prefix")
	}
}

// Ignore is a list of path patterns excluded from static analysis.
// The zero value and nil ignore nothing.
type Ignore struct {
	mode     IgnoreMode
	patterns []string
}

// NewIgnore creates an ignore list. Blank entries and # comments are dropped.
func NewIgnore(mode IgnoreMode, patterns []string) *Ignore {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		kept = append(kept, p)
	}
	return &Ignore{mode: mode, patterns: kept}
}

// LoadIgnore reads one pattern per line from path. A missing file yields an
// empty list.
func LoadIgnore(mode IgnoreMode, path string) (*Ignore, error) {
	if path == "" {
		return NewIgnore(mode, nil), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- ignore file from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return NewIgnore(mode, nil), nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read ignore file "+path, err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return NewIgnore(mode, lines), nil
}

// Patterns returns the effective patterns.
func (i *Ignore) Patterns() []string {
	if i == nil {
		return nil
	}
	return i.patterns
}

// Match reports whether p is ignored. p is a slash or OS separated path
// relative to the repository root.
func (i *Ignore) Match(p string) bool {
	if i == nil || len(i.patterns) == 0 {
		return false
	}
	p = normalizePath(p)
	if p == "" {
		return false
	}

	switch i.mode {
	case IgnorePrefix:
		for _, pat := range i.patterns {
			if strings.HasPrefix(p, normalizePath(pat)) {
				return true
			}
		}
		return false
	case IgnoreGlob:
		for _, pat := range i.patterns {
			subject := p
			if !strings.Contains(pat, "/") {
				subject = path.Base(p)
			}
			if ok, _ := path.Match(pat, subject); ok {
				return true
			}
		}
		return false
	default:
		ignored, err := pathspec.GitIgnore(i.patterns, p)
		return err == nil && ignored
	}
}

func normalizePath(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	return strings.TrimPrefix(p, "./")
}
