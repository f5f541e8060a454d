// Package metrics exposes run counters as Prometheus collectors on a
// private registry, optionally written to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/charta/internal/model"
)

const namespace = "charta"

// Metrics implements reconcile.Recorder and counts pipeline events
type Metrics struct {
	registry *prometheus.Registry

	labelsAssigned    *prometheus.CounterVec
	documentsSkipped  *prometheus.CounterVec
	scorerFailures    prometheus.Counter
	violations        *prometheus.CounterVec
	documents         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	lemmatizedForms   prometheus.Counter
	evaluationMacroF1 *prometheus.GaugeVec
}

// New creates a metrics set on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		labelsAssigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "labels_assigned_total",
			Help:      "Sentence labels assigned, by reconciliation pass.",
		}, []string{"source"}),
		documentsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Documents excluded from a batch, by reason.",
		}, []string{"reason"}),
		scorerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scorer_failures_total",
			Help:      "Sentences whose scorer failed and got a neutral vector.",
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invariant_violations_total",
			Help:      "Order or coverage violations found after reconciliation.",
		}, []string{"kind"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_classified_total",
			Help:      "Documents classified, by run mode.",
		}, []string{"mode"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run.",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 1200},
		}, []string{"mode"}),
		lemmatizedForms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lemmatized_forms_total",
			Help:      "Word forms sent to the lemmatizer.",
		}),
		evaluationMacroF1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_macro_f1",
			Help:      "Macro-averaged F1 of the last evaluation, by configuration.",
		}, []string{"config"}),
	}

	m.registry.MustRegister(
		m.labelsAssigned,
		m.documentsSkipped,
		m.scorerFailures,
		m.violations,
		m.documents,
		m.runDuration,
		m.lemmatizedForms,
		m.evaluationMacroF1,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LabelsAssigned counts labels set by one pass
func (m *Metrics) LabelsAssigned(source model.Source, n int) {
	if n > 0 {
		m.labelsAssigned.WithLabelValues(string(source)).Add(float64(n))
	}
}

// ScorerFailed counts one neutral fallback
func (m *Metrics) ScorerFailed() {
	m.scorerFailures.Inc()
}

// InvariantViolated counts one order or coverage violation
func (m *Metrics) InvariantViolated(kind model.SignalType) {
	m.violations.WithLabelValues(string(kind)).Inc()
}

// DocumentSkipped counts one excluded document
func (m *Metrics) DocumentSkipped(reason string) {
	m.documentsSkipped.WithLabelValues(reason).Inc()
}

// DocumentsClassified counts classified documents
func (m *Metrics) DocumentsClassified(mode model.RunMode, n int) {
	m.documents.WithLabelValues(string(mode)).Add(float64(n))
}

// FormsLemmatized counts word forms sent to the lemmatizer
func (m *Metrics) FormsLemmatized(n int) {
	m.lemmatizedForms.Add(float64(n))
}

// ObserveRun records the duration of a run
func (m *Metrics) ObserveRun(mode model.RunMode, elapsed time.Duration) {
	m.runDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// ObserveEvaluation records the macro F1 of an evaluated configuration
func (m *Metrics) ObserveEvaluation(res model.EvaluationResult) {
	m.evaluationMacroF1.WithLabelValues(res.Settings.String()).Set(res.Macro.F1)
}

// WriteToTextfile writes all metrics in the text exposition format. The
// file is written atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
