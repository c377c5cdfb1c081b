package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reportCacheTotal) }

var reportCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_report_cache_requests_total",
		Help: "Report cache lookups, labeled by report and result.",
	},
	[]string{"report", "result"}, // result: 'hit', 'miss', 'error'
)

func IncCacheRequest(report, result string) {
	reportCacheTotal.WithLabelValues(norm(report), norm(result)).Inc()
}
