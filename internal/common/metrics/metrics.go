// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	WorkerCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit, miss, error)",
		},
		[]string{"task_type", "outcome"},
	)

	QueriesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_queries_total",
			Help: "Queries processed, by routed module",
		},
		[]string{"module"},
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_validation_errors_total",
			Help: "Response errors emitted, by code and severity",
		},
		[]string{"code", "severity"},
	)

	CorrectionsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_router_spelling_corrections_total",
			Help: "Spelling corrections applied across all queries",
		},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_router_pipeline_duration_seconds",
			Help:    "Wall-clock time to route one query",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
		[]string{"module"},
	)

	SnapshotReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_router_snapshot_reloads_total",
			Help: "Configuration reload attempts by status (success, failure)",
		},
		[]string{"status"},
	)

	SnapshotLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_router_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the active configuration snapshot was loaded",
		},
	)
)

// ErrorCount is the metric view of one response error.
type ErrorCount struct {
	Code     string
	Severity string
}

// ObserveQuery records one routed query.
func ObserveQuery(module string, took time.Duration, errs []ErrorCount, corrections int) {
	QueriesRouted.WithLabelValues(module).Inc()
	PipelineDuration.WithLabelValues(module).Observe(took.Seconds())
	for _, e := range errs {
		ValidationErrors.WithLabelValues(e.Code, e.Severity).Inc()
	}
	if corrections > 0 {
		CorrectionsApplied.Add(float64(corrections))
	}
}

// ObserveReload records a configuration reload attempt.
func ObserveReload(loadedAt time.Time, err error) {
	if err != nil {
		SnapshotReloads.WithLabelValues("failure").Inc()
		return
	}
	SnapshotReloads.WithLabelValues("success").Inc()
	SnapshotLoadedAt.Set(float64(loadedAt.Unix()))
}
