// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(redemptionsTotal, creditsGrantedTotal, creditsDebitedTotal, redeemLatency)
}

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_redemptions_total",
			Help: "Claim attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_credits_granted_total",
			Help: "Sum of positive balance deltas, labeled by reason.",
		},
		[]string{"reason"},
	)

	creditsDebitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_credits_debited_total",
			Help: "Sum of negative balance deltas (absolute), labeled by reason.",
		},
		[]string{"reason"},
	)

	redeemLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_redeem_duration_seconds",
			Help:    "Latency of a full claim attempt including the store transaction.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveRedeemSeconds(sec float64) { redeemLatency.Observe(sec) }

// ObserveCredit records one balance delta under reason.
func ObserveCredit(reason string, delta int64) {
	switch {
	case delta > 0:
		creditsGrantedTotal.WithLabelValues(norm(reason)).Add(float64(delta))
	case delta < 0:
		creditsDebitedTotal.WithLabelValues(norm(reason)).Add(float64(-delta))
	}
}
