package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LegRequestsTotal tracks settlement leg creation calls.
	LegRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_strategy_leg_requests_total",
			Help: "Total number of settlement leg requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// PollStatusTotal tracks mapped poll results.
	PollStatusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_strategy_poll_status_total",
			Help: "Total number of poll results by leg and mapped status",
		},
		[]string{"leg", "status"},
	)

	// QuotesTotal tracks quotes produced.
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversion_strategy_quotes_total",
			Help: "Total number of quotes by asset, fixed side and outcome",
		},
		[]string{"asset", "fixed_side", "outcome"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
