package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(accountsCreatedTotal, referralsTotal, notificationsTotal) }

var (
	accountsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Accounts created on first contact.",
		},
	)

	referralsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_referrals_total",
			Help: "Referral references seen at account creation, labeled by result.",
		},
		[]string{"result"}, // 'granted', 'self', 'unknown_referrer'
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Best-effort referral notifications, labeled by status.",
		},
		[]string{"status"}, // 'sent', 'failed', 'dropped'
	)
)

func IncAccountCreated() { accountsCreatedTotal.Inc() }

func IncReferral(result string) { referralsTotal.WithLabelValues(norm(result)).Inc() }

func IncNotification(status string) { notificationsTotal.WithLabelValues(norm(status)).Inc() }
