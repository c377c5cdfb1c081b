package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobRunsTotal, expiredCodesRemovedTotal) }

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_job_runs_total",
			Help: "Scheduled job runs, labeled by job and status.",
		},
		[]string{"job", "status"}, // status: 'ok', 'failed'
	)

	expiredCodesRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_expired_codes_removed_total",
			Help: "Redeem codes physically deleted by the expiry cleanup.",
		},
	)
)

func IncJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func AddExpiredCodesRemoved(n int) { expiredCodesRemovedTotal.Add(float64(n)) }
