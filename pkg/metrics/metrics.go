package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RankLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rank_request_latency_seconds",
		Help:    "Latency of the rank endpoint",
		Buckets: prometheus.DefBuckets,
	})

	RankRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rank_requests_total",
		Help: "Total rank requests served",
	})

	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "experiment_assignments_total",
			Help: "Experiment assignments by experiment and variant",
		},
		[]string{"experiment_key", "variant"},
	)

	AggregationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_aggregation_failures_total",
			Help: "Per-experiment metric aggregation failures",
		},
		[]string{"experiment_key"},
	)

	AutoStopsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "experiment_auto_stops_total",
		Help: "Experiments deactivated by the auto-stop monitor",
	})
)

func Init() {
	prometheus.MustRegister(
		RankLatency,
		RankRequests,
		AssignmentsTotal,
		AggregationFailures,
		AutoStopsTotal,
	)
}
