package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChunksFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_chunks_fetched_total",
		Help: "Chunks fetched from the ledger by exhaustive scans.",
	}, []string{"scan"})

	SourceRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_source_retries_total",
		Help: "Retried source queries.",
	}, []string{"query"})

	CountDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_totals_count_drift_total",
		Help: "Totals scans whose row count disagreed with the count query.",
	})

	StaleTotalsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_totals_stale_discarded_total",
		Help: "Totals results dropped because a newer fetch superseded them.",
	})

	DegradedTotals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_totals_degraded_total",
		Help: "Totals computations that failed and fell back to count only.",
	})

	LegacyLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_legacy_lookup_failures_total",
		Help: "Legacy lookups that failed and were treated as no match.",
	})

	TotalsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_totals_duration_seconds",
		Help:    "Time spent computing totals over the full filtered set.",
		Buckets: prometheus.DefBuckets,
	})

	BrowserSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sales_browser_sessions",
		Help: "Open realtime browsing sessions.",
	})
)
