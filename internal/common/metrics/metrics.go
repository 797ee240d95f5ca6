// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_cycles_total",
			Help: "Total number of matching cycles by outcome",
		},
		[]string{"outcome"}, // completed | failed | skipped
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_cycle_duration_seconds",
			Help:    "Duration of one full matching cycle in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	PreferencesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_preferences_processed_total",
			Help: "Total number of preferences processed across cycles",
		},
	)

	PreferencesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_preferences_skipped_total",
			Help: "Total number of preferences skipped as malformed",
		},
	)

	ListingsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_listings_skipped_total",
			Help: "Total number of catalog rows skipped as malformed",
		},
	)

	CandidatesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_evaluated_total",
			Help: "Total number of candidate listings scored",
		},
	)

	LeadsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_leads_emitted_total",
			Help: "Total number of leads published to the broker",
		},
	)

	LeadsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_leads_suppressed_total",
			Help: "Total number of leads suppressed by the dedup window",
		},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_publish_failures_total",
			Help: "Total number of failed lead publishes",
		},
		[]string{"error_code"},
	)
)
