package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, storeErrorsTotal) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	storeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_store_errors_total",
			Help: "Store failures surfaced to callers, labeled by operation and kind.",
		},
		[]string{"op", "kind"}, // kind: 'transient', 'fatal'
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func IncStoreError(op, kind string) {
	storeErrorsTotal.WithLabelValues(norm(op), norm(kind)).Inc()
}
