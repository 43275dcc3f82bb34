package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coach_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	EntitlementDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_entitlement_decisions_total",
			Help: "Total number of entitlement decisions resolved, by plan.",
		},
		[]string{"plan"},
	)

	UsageIncrementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_usage_increments_total",
			Help: "Total number of billable actions recorded, by kind and plan.",
		},
		[]string{"kind", "plan"},
	)

	SubscriptionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coach_subscription_events_total",
			Help: "Total number of billing subscription events consumed, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		EntitlementDecisionsTotal,
		UsageIncrementsTotal,
		SubscriptionEventsTotal,
	)
}
