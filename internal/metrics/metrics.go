// Package metrics holds the Prometheus instruments for the ingestion and
// extraction pipeline. The HTTP layer has its own middleware-level metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DocumentsIngested  *prometheus.CounterVec
	DuplicatesSkipped  *prometheus.CounterVec
	SyncRuns           *prometheus.CounterVec
	ExtractionRuns     *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
}

// New registers the pipeline instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DocumentsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Documents created by sync or upload, by source.",
		}, []string{"source"}),
		DuplicatesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_duplicates_skipped_total",
			Help: "Incoming items skipped because an equivalent document exists.",
		}, []string{"source"}),
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Completed sync runs, by outcome.",
		}, []string{"outcome"}),
		ExtractionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "extraction_runs_total",
			Help: "Field extraction attempts, by outcome.",
		}, []string{"outcome"}),
		ExtractionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "extraction_failures_total",
			Help: "Extraction attempts that marked a document as errored.",
		}),
	}
}
