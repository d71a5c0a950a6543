package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// WriteSummary prints one line per step in run order:
//
//	V cmake
//	X ninja check all: 3 tests failed
//
// Marks are colored when w is a terminal.
func (r *Report) WriteSummary(w io.Writer) {
	renderer := lipgloss.NewRenderer(w)
	styles := map[CheckResult]lipgloss.Style{
		Success: renderer.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		Failure: renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Unknown: renderer.NewStyle().Foreground(lipgloss.Color("3")),
	}

	for _, s := range r.Steps {
		msg := s.Message
		if msg != "" {
			msg = ": " + msg
		}
		fmt.Fprintf(w, "%s %s%s\n", styles[s.Result].Render(s.Result.Mark()), s.Name, msg)
	}
}
