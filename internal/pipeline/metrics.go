package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trvd",
			Subsystem: "pipeline",
			Name:      "executions_total",
			Help:      "Total pipeline executions by outcome",
		},
		[]string{"outcome"},
	)

	executionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trvd",
			Subsystem: "pipeline",
			Name:      "execution_duration_seconds",
			Help:      "End to end pipeline execution duration",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	criticIterationsHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trvd",
			Subsystem: "pipeline",
			Name:      "critic_iterations",
			Help:      "Critic iterations spent per execution",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal, executionSeconds, criticIterationsHist)
}
