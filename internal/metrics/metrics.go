// Package metrics holds the Prometheus collectors for discovery runs.
//
// Collectors register on the default registry at init; `rdscout` serves them
// when started with --metrics-addr.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/steveyegge/rdscout/internal/types"
)

var (
	// runsTotal counts discovery runs by mode and final status
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdscout_discovery_runs_total",
		Help: "Discovery runs by mode and final status",
	}, []string{"mode", "status"})

	// runDuration tracks end-to-end run latency
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rdscout_discovery_run_duration_seconds",
		Help:    "Discovery run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"mode"})

	// documentsTotal counts documents seen by runs, by outcome (analyzed, skipped)
	documentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdscout_documents_total",
		Help: "Documents processed by discovery runs",
	}, []string{"outcome"})

	// fallbackDocuments counts documents clustered without an embedding
	fallbackDocuments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rdscout_fallback_clustering_documents_total",
		Help: "Documents clustered by the name-token fallback",
	})

	// collaboratorFailures counts unavailable collaborator calls
	collaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdscout_collaborator_failures_total",
		Help: "Collaborator calls that failed and were degraded",
	}, []string{"collaborator"})

	// tagChanges counts tag changes by action and provenance
	tagChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdscout_tag_changes_total",
		Help: "Document-project tag changes by action and provenance",
	}, []string{"action", "provenance"})

	// changeOutcomes counts change-detection classifications
	changeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rdscout_change_outcomes_total",
		Help: "Incremental change-detection outcomes per document",
	}, []string{"outcome"})
)

// RecordRun records a finished run
func RecordRun(mode types.RunMode, status types.RunStatus, elapsed time.Duration) {
	runsTotal.WithLabelValues(string(mode), string(status)).Inc()
	runDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// RecordDocuments records analyzed and skipped document counts
func RecordDocuments(analyzed, skipped int) {
	documentsTotal.WithLabelValues("analyzed").Add(float64(analyzed))
	documentsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordFallback records documents that went through fallback clustering
func RecordFallback(n int) {
	fallbackDocuments.Add(float64(n))
}

// RecordCollaboratorFailure records one degraded collaborator call
func RecordCollaboratorFailure(collaborator string) {
	collaboratorFailures.WithLabelValues(collaborator).Inc()
}

// RecordTagChanges records applied and suppressed tag changes
func RecordTagChanges(changes []types.TagChange) {
	for _, c := range changes {
		tagChanges.WithLabelValues(string(c.Action), string(c.Provenance)).Inc()
	}
}

// RecordOutcome records one change-detection classification
func RecordOutcome(outcome types.ChangeOutcome) {
	changeOutcomes.WithLabelValues(string(outcome)).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
