package classify

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/premerge/internal/report"
)

// TestResultsStep is the name of the step recorded by ClassifyTestResults.
const TestResultsStep = "test results"

// junitCase is a <testcase> as written by lit's --xunit-xml-output.
type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure"`
	Error     *junitMessage `xml:"error"`
	Skipped   *junitMessage `xml:"skipped"`
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

func (m *junitMessage) details() string {
	if t := strings.TrimSpace(m.Text); t != "" {
		return t
	}
	return m.Message
}

// ParseJUnit converts every testcase element, wherever it is nested, into a
// unit finding. Order follows the document.
func ParseJUnit(data []byte) ([]report.UnitFinding, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		findings []report.UnitFinding
		sawRoot  bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed test report: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if start.Name.Local != "testcase" {
			continue
		}
		var tc junitCase
		if err := dec.DecodeElement(&tc, &start); err != nil {
			return nil, fmt.Errorf("malformed testcase: %w", err)
		}
		findings = append(findings, tc.finding())
	}
	if !sawRoot {
		return nil, fmt.Errorf("test report has no XML elements")
	}
	return findings, nil
}

func (tc junitCase) finding() report.UnitFinding {
	f := report.UnitFinding{
		Name:      tc.Name,
		Namespace: tc.Classname,
		Engine:    "lit",
		Result:    report.UnitPass,
	}
	if d, err := strconv.ParseFloat(tc.Time, 64); err == nil && d >= 0 {
		f.Duration = d
	}
	switch {
	case tc.Failure != nil:
		f.Result = report.UnitFail
		f.Details = tc.Failure.details()
	case tc.Error != nil:
		f.Result = report.UnitBroken
		f.Details = tc.Error.details()
	case tc.Skipped != nil:
		f.Result = report.UnitSkip
		f.Details = tc.Skipped.details()
	}
	if f.Details != "" {
		f.Format = "remarkup"
		f.Details = "```\n" + f.Details + "\n```"
	}
	return f
}

// ClassifyTestResults reads a JUnit report from path and records the
// "test results" step. A missing or unreadable report is a Failure with a
// diagnostic message.
func ClassifyTestResults(r *report.Report, path string) report.CheckResult {
	data, err := os.ReadFile(path) // #nosec G304 -- path inside the build directory
	if err != nil {
		msg := fmt.Sprintf("test report %s could not be read: %v", path, err)
		if os.IsNotExist(err) {
			msg = fmt.Sprintf("test report %s was not produced", path)
		}
		r.AddStep(TestResultsStep, report.Failure, msg)
		return report.Failure
	}

	findings, err := ParseJUnit(data)
	if err != nil {
		r.AddStep(TestResultsStep, report.Failure, fmt.Sprintf("test report %s: %v", path, err))
		return report.Failure
	}
	r.AddUnit(findings...)

	result, msg := summarizeTests(findings)
	r.AddStep(TestResultsStep, result, msg)
	return result
}

func summarizeTests(findings []report.UnitFinding) (report.CheckResult, string) {
	var stats report.TestStats
	var failed []string
	for _, f := range findings {
		switch f.Result {
		case report.UnitPass:
			stats.Pass++
		case report.UnitSkip:
			stats.Skip++
		default:
			stats.Fail++
			failed = append(failed, f.Namespace+"/"+f.Name)
		}
	}

	msg := fmt.Sprintf("%d tests passed, %d failed and %d were skipped.", stats.Pass, stats.Fail, stats.Skip)
	if len(failed) == 0 {
		return report.Success, msg
	}
	return report.Failure, msg + "\n" + strings.Join(failed, "\n")
}
