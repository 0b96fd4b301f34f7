package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion pipeline

var (
	// Upstream fetch metrics
	FetchCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbb_fetch_calls_total",
			Help: "Total number of upstream scoreboard API calls",
		},
		[]string{"endpoint", "status"},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cbb_fetch_duration_seconds",
			Help:    "Duration of upstream API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbb_sync_operations_total",
			Help: "Total number of schedule sync operations",
		},
		[]string{"league", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbb_sync_duration_seconds",
			Help:    "Duration of schedule sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"league"},
	)

	// Processing metrics
	GamesProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbb_games_processed_total",
			Help: "Total number of final games turned into stat rows",
		},
	)

	GamesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbb_games_skipped_total",
			Help: "Total number of final games skipped for missing boxscore data",
		},
	)

	RollupRecomputesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbb_rollup_recomputes_total",
			Help: "Total number of team season rollup recomputations",
		},
	)

	// Ingestion gauges
	TeamsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbb_teams_ingested_total",
			Help: "Total number of teams in database",
		},
	)

	GamesIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbb_games_ingested_total",
			Help: "Total number of games in database",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbb_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbb_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbb_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)
)

// RecordFetch records the outcome of one upstream call.
func RecordFetch(endpoint, status string) {
	FetchCallsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveFetchDuration records the duration of one upstream attempt.
func ObserveFetchDuration(seconds float64) {
	FetchDuration.Observe(seconds)
}

// RecordSync records a sync operation for one league.
func RecordSync(league, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(league, status).Inc()
	SyncDuration.WithLabelValues(league).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordProcessing records the outcome of one processing run.
func RecordProcessing(processed, skipped int) {
	GamesProcessedTotal.Add(float64(processed))
	GamesSkippedTotal.Add(float64(skipped))
}

// RecordRollupRecompute records one rollup recomputation.
func RecordRollupRecompute() {
	RollupRecomputesTotal.Inc()
}

// RecordError records an error for a component.
func RecordError(component string) {
	ErrorsTotal.WithLabelValues(component).Inc()
}

// UpdateIngestionStats updates the entity-count gauges.
func UpdateIngestionStats(teams, games int64) {
	TeamsIngested.Set(float64(teams))
	GamesIngested.Set(float64(games))
}
