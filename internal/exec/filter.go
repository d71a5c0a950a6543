package exec

import (
	"bytes"
	"io"
	"regexp"
)

// filterWriter forwards complete lines to w unless they match a denylist pattern.
type filterWriter struct {
	w       io.Writer
	filters []*regexp.Regexp
	buf     []byte
}

func newFilterWriter(w io.Writer, filters []*regexp.Regexp) *filterWriter {
	return &filterWriter{w: w, filters: filters}
}

// Write never fails; console output is best effort and must not kill the build.
func (f *filterWriter) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	for {
		i := bytes.IndexByte(f.buf, '\n')
		if i < 0 {
			break
		}
		f.emit(f.buf[:i+1])
		f.buf = f.buf[i+1:]
	}
	return len(p), nil
}

// Flush writes a trailing line that had no newline.
func (f *filterWriter) Flush() {
	if len(f.buf) > 0 {
		f.emit(f.buf)
		f.buf = nil
	}
}

func (f *filterWriter) emit(line []byte) {
	trimmed := bytes.TrimRight(line, "\r\n")
	for _, re := range f.filters {
		if re.Match(trimmed) {
			return
		}
	}
	_, _ = f.w.Write(line)
}

// FilterLines applies the same denylist to a whole buffer.
func FilterLines(data []byte, filters []*regexp.Regexp) []byte {
	var out bytes.Buffer
	fw := newFilterWriter(&out, filters)
	_, _ = fw.Write(data)
	fw.Flush()
	return out.Bytes()
}
