package sweep

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Detection sweep ticks by outcome",
		},
		[]string{"outcome"},
	)

	sweepReportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweep_anomaly_reports_total",
			Help: "Anomaly reports raised by the detection sweep",
		},
	)

	sweepFlagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_flags_set_total",
			Help: "Stored-reading flags set by the sweep",
		},
		[]string{"flag"},
	)
)

func init() {
	prometheus.MustRegister(sweepRunsTotal)
	prometheus.MustRegister(sweepReportsTotal)
	prometheus.MustRegister(sweepFlagsTotal)
}
