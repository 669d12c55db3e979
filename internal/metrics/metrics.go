// Package metrics exposes Prometheus collectors for the production pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline collectors. Pass nil where metrics are not
// wanted; all methods are nil-safe.
type Metrics struct {
	StageRuns        *prometheus.CounterVec
	ChapterRetries   prometheus.Counter
	ChapterDegraded  prometheus.Counter
	GeneratorSeconds prometheus.Histogram
	Admissions       *prometheus.CounterVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_stage_runs_total",
			Help: "Pipeline stage executions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		ChapterRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_chapter_retries_total",
			Help: "Chapter generation attempts beyond the first.",
		}),
		ChapterDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_chapter_degraded_total",
			Help: "Chapters that exhausted retries and received placeholder content.",
		}),
		GeneratorSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quill_generator_seconds",
			Help:    "Latency of generator calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		Admissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_admission_total",
			Help: "Admission gate outcomes.",
		}, []string{"outcome"}),
	}
}

// RecordStage counts one stage run.
func (m *Metrics) RecordStage(stage, outcome string) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(stage, outcome).Inc()
}

// RecordAdmission counts one admission outcome.
func (m *Metrics) RecordAdmission(outcome string) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(outcome).Inc()
}

// RecordChapterRetry counts one retried chapter attempt.
func (m *Metrics) RecordChapterRetry() {
	if m == nil {
		return
	}
	m.ChapterRetries.Inc()
}

// RecordChapterDegraded counts one placeholder substitution.
func (m *Metrics) RecordChapterDegraded() {
	if m == nil {
		return
	}
	m.ChapterDegraded.Inc()
}

// ObserveGenerator records one generator call duration in seconds.
func (m *Metrics) ObserveGenerator(seconds float64) {
	if m == nil {
		return
	}
	m.GeneratorSeconds.Observe(seconds)
}
