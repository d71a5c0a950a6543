package report

// Lint severities understood by Harbormaster.
const (
	SeverityAdvice   = "advice"
	SeverityAutofix  = "autofix"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityDisabled = "disabled"
)

// LintFinding is one static-analysis message. Field names follow the
// harbormaster.sendmessage lint payload.
type LintFinding struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Severity    string `json:"severity"`
	Path        string `json:"path"`
	Line        int    `json:"line,omitempty"`
	Char        int    `json:"char,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnitResult is a unit test outcome as Harbormaster names it.
type UnitResult string

const (
	UnitPass   UnitResult = "pass"
	UnitFail   UnitResult = "fail"
	UnitSkip   UnitResult = "skip"
	UnitBroken UnitResult = "broken"
)

// UnitFinding is one test case result. Field names follow the
// harbormaster.sendmessage unit payload.
type UnitFinding struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace,omitempty"`
	Engine    string     `json:"engine,omitempty"`
	Result    UnitResult `json:"result"`
	// Duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	Details  string  `json:"details,omitempty"`
	Format   string  `json:"format,omitempty"`
}
