// Package metrics holds the Prometheus collectors for the ledger and the
// workflows. Collectors live in the default registry and are exposed by
// the daemon on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ptab"

var (
	recalcRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recalculations_total",
			Help:      "Balance table rebuilds by outcome.",
		},
		[]string{"outcome"}, // ok, error
	)

	recalcDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recalculation_duration_seconds",
			Help:      "Time spent rebuilding the balance table.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	balancedLines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "active_budget_lines",
			Help:      "Active budget lines written by the last rebuild.",
		},
	)

	admissionRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "admission_rejections_total",
			Help:      "Expense lines refused for insufficient balance.",
		},
	)

	workflowCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "commits_total",
			Help:      "Workflow commits by workflow and outcome.",
		},
		[]string{"workflow", "outcome"},
	)
)

// ObserveRecalc records one rebuild of the balance table.
func ObserveRecalc(start time.Time, lines int, err error) {
	recalcDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		recalcRuns.WithLabelValues("error").Inc()
		return
	}
	recalcRuns.WithLabelValues("ok").Inc()
	balancedLines.Set(float64(lines))
}

// AdmissionRejected counts one refused expense line.
func AdmissionRejected() { admissionRejects.Inc() }

// WorkflowCommit counts one commit attempt of the named workflow.
func WorkflowCommit(workflow string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	workflowCommits.WithLabelValues(workflow, outcome).Inc()
}
