package slot

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trvd",
			Subsystem: "slot",
			Name:      "loads_total",
			Help:      "Total model loads by role",
		},
		[]string{"role"},
	)

	reclaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trvd",
			Subsystem: "slot",
			Name:      "reclaims_total",
			Help:      "Total reclaim operations by outcome",
		},
		[]string{"outcome"},
	)

	residentGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trvd",
			Subsystem: "slot",
			Name:      "resident",
			Help:      "1 when a model is resident, else 0",
		},
	)

	generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trvd",
			Subsystem: "slot",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation calls by role",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"role"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, reclaimsTotal, residentGauge, generationSeconds)
}
