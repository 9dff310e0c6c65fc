package bandit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_decisions_total",
			Help: "Count of bandit decisions by arm and selection reason.",
		},
		[]string{"arm", "reason"},
	)

	rewardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_rewards_total",
			Help: "Count of processed reward events by arm and reward type.",
		},
		[]string{"arm", "reward_type"},
	)

	rewardsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_rewards_dropped_total",
			Help: "Count of reward events rejected before crediting an arm.",
		},
		[]string{"cause"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal, rewardsTotal, rewardsDropped)
}
