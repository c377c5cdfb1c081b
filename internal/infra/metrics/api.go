package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(apiRequestsTotal, apiAuthFailuresTotal, rateLimitedTotal) }

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_api_requests_total",
			Help: "Internal API requests, labeled by route pattern and status class.",
		},
		[]string{"route", "status"},
	)

	apiAuthFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_api_auth_failures_total",
			Help: "Requests rejected for a missing or invalid bearer token.",
		},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_redeem_rate_limited_total",
			Help: "Claim attempts rejected by the per-account attempt limiter.",
		},
	)
)

func IncAPIRequest(route, status string) {
	apiRequestsTotal.WithLabelValues(route, status).Inc()
}

func IncAuthFailure() { apiAuthFailuresTotal.Inc() }

func IncRateLimited() { rateLimitedTotal.Inc() }
