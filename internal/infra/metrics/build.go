package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "ledger_build_info",
		Help: "Constant 1, labeled by version, commit and store driver.",
	},
	[]string{"version", "commit", "driver", "goversion"},
)

func SetBuildInfo(version, commit, driver string) {
	buildInfo.WithLabelValues(version, commit, norm(driver), runtime.Version()).Set(1)
}
