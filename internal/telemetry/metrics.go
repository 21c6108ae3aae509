package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Package-level collectors, registered via All() into the process registry.
var (
	SchedulerJobsEnqueuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_scheduler_jobs_enqueued_total",
		Help: "Incremental sync jobs enqueued by the scheduler, by provider.",
	}, []string{"provider_slug"})

	SchedulerTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relayhub_scheduler_ticks_total",
		Help: "Scheduler tick loop iterations.",
	})

	ExecutorJobsClaimedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_executor_jobs_claimed_total",
		Help: "Sync jobs claimed by executor workers, by job type.",
	}, []string{"job_type"})

	ExecutorJobsSucceededTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_executor_jobs_succeeded_total",
		Help: "Sync jobs that completed successfully, by provider.",
	}, []string{"provider_slug"})

	ExecutorJobsFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_executor_jobs_failed_total",
		Help: "Sync jobs that failed (retryable or terminal), by provider and outcome.",
	}, []string{"provider_slug", "outcome"})

	ExecutorJobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayhub_executor_job_duration_seconds",
		Help:    "Wall-clock duration of a claimed sync job's run phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider_slug", "job_type"})

	RefresherAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_refresher_attempts_total",
		Help: "Token refresh attempts, by provider and outcome.",
	}, []string{"provider_slug", "outcome"})

	WebhooksReceivedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_webhooks_received_total",
		Help: "Inbound webhook requests, by provider and verification outcome.",
	}, []string{"provider_slug", "outcome"})

	SignalsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_signals_ingested_total",
		Help: "Signals inserted (excludes dedupe-suppressed duplicates), by provider and kind.",
	}, []string{"provider_slug", "kind"})

	SignalsDedupedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_signals_deduped_total",
		Help: "Signal inserts suppressed by the dedupe unique index, by provider.",
	}, []string{"provider_slug"})

	GroundedSignalsPromotedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayhub_grounded_signals_promoted_total",
		Help: "Signals promoted to grounded signals, by tenant.",
	}, []string{"tenant_id"})

	ScoringDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayhub_scoring_duration_seconds",
		Help:    "Time spent scoring a batch of signals.",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relayhub_http_request_duration_seconds",
		Help:    "HTTP request duration, by route, method, and status text.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// All returns every collector for registration with a prometheus.Registry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		SchedulerJobsEnqueuedTotal,
		SchedulerTicksTotal,
		ExecutorJobsClaimedTotal,
		ExecutorJobsSucceededTotal,
		ExecutorJobsFailedTotal,
		ExecutorJobDuration,
		RefresherAttemptsTotal,
		WebhooksReceivedTotal,
		SignalsIngestedTotal,
		SignalsDedupedTotal,
		GroundedSignalsPromotedTotal,
		ScoringDuration,
		HTTPRequestDuration,
	}
}
