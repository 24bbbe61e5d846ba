package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// FilesProcessedTotal counts processed media files by outcome.
	FilesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "files_processed_total",
		Help:      "Total number of media files processed by the pipeline, labeled by result.",
	}, []string{"result"})

	// FilesSkippedTotal counts files skipped as already processed.
	FilesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "files_skipped_total",
		Help:      "Total number of media files skipped because the ledger already records them.",
	})

	// ProviderErrorsTotal counts context provider failures by provider name.
	ProviderErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "provider_errors_total",
		Help:      "Total number of context provider failures, labeled by provider.",
	}, []string{"provider"})

	// ProcessingDurationSeconds is end-to-end time per file.
	ProcessingDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "processing_duration_seconds",
		Help:      "End-to-end time to process one media file through the pipeline.",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 60, 120, 300},
	}, []string{"result"})

	// ProposalsSubmittedTotal counts confirmed on-chain proposals.
	ProposalsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "proposals_submitted_total",
		Help:      "Total number of proposals confirmed on chain.",
	})

	// PinsTotal counts IPFS pin operations by kind.
	PinsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "impact",
		Subsystem: "agent",
		Name:      "ipfs_pins_total",
		Help:      "Total number of successful IPFS pin operations, labeled by kind.",
	}, []string{"kind"})
)

// Register registers pipeline metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			FilesProcessedTotal,
			FilesSkippedTotal,
			ProviderErrorsTotal,
			ProcessingDurationSeconds,
			ProposalsSubmittedTotal,
			PinsTotal,
		)
	})
}
