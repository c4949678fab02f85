// Package observability builds the process logger and owns the pipeline's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coaching_pipeline"

var (
	safetyVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "safety",
		Name:      "verdicts_total",
		Help:      "Safety verdicts by action and severity.",
	}, []string{"action", "severity"})

	safetyEscalations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "safety",
		Name:      "escalations_total",
		Help:      "Safety interventions queued for human review.",
	})

	modelCalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "call_duration_seconds",
		Help:      "Language-model call latency by outcome.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"outcome"})

	retrievalFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retrieval",
		Name:      "failures_total",
		Help:      "Retrieval searches that failed and left the turn ungrounded.",
	})

	planAdaptations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "session_completions_total",
		Help:      "Session completions by reported difficulty.",
	}, []string{"difficulty"})

	planSubstitutions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "planning",
		Name:      "substitutions_total",
		Help:      "Movements swapped for a regression or progression.",
	})

	auditWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "writes_total",
		Help:      "Audit record writes by record type and outcome.",
	}, []string{"type", "outcome"})

	auditLastWrite = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful audit write.",
	})
)

func init() {
	prometheus.MustRegister(
		safetyVerdicts,
		safetyEscalations,
		modelCalls,
		retrievalFailures,
		planAdaptations,
		planSubstitutions,
		auditWrites,
		auditLastWrite,
	)
}

// RecordSafetyVerdict counts one verdict.
func RecordSafetyVerdict(action, severity string, escalate bool) {
	safetyVerdicts.WithLabelValues(action, severity).Inc()
	if escalate {
		safetyEscalations.Inc()
	}
}

// RecordModelCall observes a language-model call.
func RecordModelCall(outcome string, d time.Duration) {
	modelCalls.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRetrievalFailure counts an absorbed retrieval error.
func RecordRetrievalFailure() {
	retrievalFailures.Inc()
}

// RecordSessionCompletion counts a completion and the substitutions it caused.
func RecordSessionCompletion(difficulty string, substitutions int) {
	planAdaptations.WithLabelValues(difficulty).Inc()
	if substitutions > 0 {
		planSubstitutions.Add(float64(substitutions))
	}
}

// RecordAuditWrite counts an audit write attempt.
func RecordAuditWrite(recordType, outcome string, ts time.Time) {
	auditWrites.WithLabelValues(recordType, outcome).Inc()
	if outcome == "ok" && !ts.IsZero() {
		auditLastWrite.Set(float64(ts.Unix()))
	}
}
