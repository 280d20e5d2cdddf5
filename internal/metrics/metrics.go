package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planpass_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SubscriptionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_subscription_transitions_total",
			Help: "Subscription lifecycle transitions by kind",
		},
		[]string{"transition", "source"},
	)

	SubscriptionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_subscription_conflicts_total",
			Help: "Transitions rejected because a concurrent writer changed the record first",
		},
		[]string{"operation"},
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_sweep_runs_total",
			Help: "Expiry sweep runs by outcome",
		},
		[]string{"outcome"},
	)

	SweepExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planpass_sweep_expired_total",
			Help: "Subscriptions expired by the sweeper",
		},
	)

	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planpass_sweep_record_failures_total",
			Help: "Per-record update failures during sweeps",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planpass_sweep_duration_seconds",
			Help:    "Duration of expiry sweep runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlanCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_plan_cache_requests_total",
			Help: "Plan cache lookups by result",
		},
		[]string{"result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_events_published_total",
			Help: "Lifecycle events handed to publishers",
		},
		[]string{"type", "status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planpass_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTransition counts a lifecycle transition. source is "api", "lazy" or "sweeper".
func RecordTransition(transition, source string) {
	SubscriptionTransitionsTotal.WithLabelValues(transition, source).Inc()
}

func RecordConflict(operation string) {
	SubscriptionConflictsTotal.WithLabelValues(operation).Inc()
}

func RecordSweep(outcome string, expired, failed int, seconds float64) {
	SweepRunsTotal.WithLabelValues(outcome).Inc()
	SweepExpiredTotal.Add(float64(expired))
	SweepFailuresTotal.Add(float64(failed))
	SweepDuration.Observe(seconds)
}

func RecordPlanCache(result string) {
	PlanCacheRequestsTotal.WithLabelValues(result).Inc()
}

func RecordEvent(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

func RecordEmail(status string) {
	EmailsSentTotal.WithLabelValues(status).Inc()
}
