package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salesforge"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"outcome"}, // outcome: success, unknown_email, bad_password, inactive, error
	)

	tokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Total number of tokens added to the revocation set.",
		},
	)

	revocationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "revocations_swept_total",
			Help:      "Expired revocation entries removed by the sweeper.",
		},
	)

	leadOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "operations_total",
			Help:      "Lead service operations by operation and result.",
		},
		[]string{"operation", "result"}, // result: ok, forbidden, not_found, invalid, error
	)
)

// ObserveRequest records one served HTTP request
func ObserveRequest(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

func RecordRevocation() {
	tokensRevoked.Inc()
}

func RecordSweep(removed int) {
	revocationsSwept.Add(float64(removed))
}

func RecordLeadOperation(operation, result string) {
	leadOperations.WithLabelValues(operation, result).Inc()
}
