package classify

import (
	"strconv"
	"strings"
)

// FileDiff is one file section of a unified diff.
type FileDiff struct {
	OldPath string
	NewPath string
	Header  []string // Raw lines before the first hunk
	Hunks   []Hunk
}

// Hunk is one @@ section. Lines holds the body without the @@ line.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Header             string
	Lines              []string
}

// Path returns the path the diff applies to, the old path for deletions.
func (f FileDiff) Path() string {
	if f.NewPath == "" || f.NewPath == "/dev/null" {
		return f.OldPath
	}
	return f.NewPath
}

// String renders the file section back to unified diff text.
func (f FileDiff) String() string {
	var b strings.Builder
	for _, l := range f.Header {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	for _, h := range f.Hunks {
		b.WriteString(h.Header)
		b.WriteByte('\n')
		for _, l := range h.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ParseUnifiedDiff splits git or diff(1) unified output into file sections.
// Text before the first file header is dropped.
func ParseUnifiedDiff(data []byte) []FileDiff {
	var (
		files   []FileDiff
		cur     *FileDiff
		hunk    *Hunk
		oldLeft int
		newLeft int
	)
	flushHunk := func() {
		if cur != nil && hunk != nil {
			cur.Hunks = append(cur.Hunks, *hunk)
		}
		hunk = nil
	}
	startFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
		}
		cur = &FileDiff{}
	}

	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		inHunk := hunk != nil && (oldLeft > 0 || newLeft > 0)
		switch {
		case inHunk:
			hunk.Lines = append(hunk.Lines, line)
			switch {
			case strings.HasPrefix(line, "-"):
				oldLeft--
			case strings.HasPrefix(line, "+"):
				newLeft--
			case strings.HasPrefix(line, `\`):
			default:
				oldLeft--
				newLeft--
			}
		case strings.HasPrefix(line, "diff "):
			startFile()
			cur.Header = append(cur.Header, line)
		case strings.HasPrefix(line, "--- "):
			if cur == nil || len(cur.Hunks) > 0 || hunk != nil || cur.OldPath != "" {
				startFile()
			}
			cur.OldPath = diffPath(line[4:])
			cur.Header = append(cur.Header, line)
		case strings.HasPrefix(line, "+++ ") && cur != nil && hunk == nil:
			cur.NewPath = diffPath(line[4:])
			cur.Header = append(cur.Header, line)
		case strings.HasPrefix(line, "@@ ") && cur != nil:
			flushHunk()
			h, ok := parseHunkHeader(line)
			if !ok {
				cur.Header = append(cur.Header, line)
				continue
			}
			hunk = &h
			oldLeft, newLeft = h.OldLines, h.NewLines
		case hunk != nil && strings.HasPrefix(line, `\`):
			hunk.Lines = append(hunk.Lines, line)
		case cur != nil && hunk == nil:
			cur.Header = append(cur.Header, line)
		}
	}
	startFile()
	return files
}

// diffPath strips the tab-separated timestamp or label from a ---/+++ path.
func diffPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// parseHunkHeader parses "@@ -a[,b] +c[,d] @@ ...".
func parseHunkHeader(line string) (Hunk, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != "@@" || fields[3] != "@@" {
		return Hunk{}, false
	}
	oldStart, oldLines, ok1 := parseRange(strings.TrimPrefix(fields[1], "-"))
	newStart, newLines, ok2 := parseRange(strings.TrimPrefix(fields[2], "+"))
	if !ok1 || !ok2 {
		return Hunk{}, false
	}
	return Hunk{
		OldStart: oldStart, OldLines: oldLines,
		NewStart: newStart, NewLines: newLines,
		Header: line,
	}, true
}

func parseRange(s string) (start, count int, ok bool) {
	startStr, countStr, hasCount := strings.Cut(s, ",")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, false
	}
	count = 1
	if hasCount {
		if count, err = strconv.Atoi(countStr); err != nil {
			return 0, 0, false
		}
	}
	return start, count, true
}

// FilterDiff drops the sections of files matched by ignore.
func FilterDiff(data []byte, ignore *Ignore) []byte {
	var b strings.Builder
	for _, f := range ParseUnifiedDiff(data) {
		if ignore.Match(f.Path()) {
			continue
		}
		b.WriteString(f.String())
	}
	return []byte(b.String())
}
