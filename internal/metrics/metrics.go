package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a premerge run
type Metrics struct {
	// Step metrics
	StepExecutions *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec

	// Finding metrics
	LintFindings *prometheus.CounterVec
	UnitResults  *prometheus.CounterVec

	// Publishing metrics
	ArtifactUploads *prometheus.CounterVec
	StatusUpdates   *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		StepExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_step_executions_total",
				Help: "Total number of executed steps by result",
			},
			[]string{"step", "result"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "premerge_step_duration_seconds",
				Help:    "Step duration in seconds",
				Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"step"},
		),
		LintFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_lint_findings_total",
				Help: "Total number of lint findings by tool",
			},
			[]string{"tool"},
		),
		UnitResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_unit_results_total",
				Help: "Total number of test cases by outcome",
			},
			[]string{"result"},
		),
		ArtifactUploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_artifact_uploads_total",
				Help: "Total number of artifact uploads",
			},
			[]string{"success"},
		),
		StatusUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_status_updates_total",
				Help: "Total number of review system status updates",
			},
			[]string{"success"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "premerge_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordStep records one executed step. Safe on a nil receiver.
func (m *Metrics) RecordStep(step, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepExecutions.WithLabelValues(step, result).Inc()
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// RecordLint counts lint findings produced by tool.
func (m *Metrics) RecordLint(tool string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.LintFindings.WithLabelValues(tool).Add(float64(n))
}

// RecordUnit counts one test case outcome.
func (m *Metrics) RecordUnit(result string) {
	if m == nil {
		return
	}
	m.UnitResults.WithLabelValues(result).Inc()
}

// RecordUpload counts an artifact upload attempt.
func (m *Metrics) RecordUpload(success bool) {
	if m == nil {
		return
	}
	m.ArtifactUploads.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordStatusUpdate counts a review system update attempt.
func (m *Metrics) RecordStatusUpdate(success bool) {
	if m == nil {
		return
	}
	m.StatusUpdates.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordError counts an error by code.
func (m *Metrics) RecordError(code, component string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
