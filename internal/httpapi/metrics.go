package httpapi

import "github.com/prometheus/client_golang/prometheus"

var (
	ingestRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_requests_total",
			Help: "Ingest requests by outcome",
		},
		[]string{"outcome"},
	)

	ingestAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_threshold_alerts_total",
			Help: "Advisory threshold alerts raised at ingestion time",
		},
	)
)

func init() {
	prometheus.MustRegister(ingestRequestsTotal)
	prometheus.MustRegister(ingestAlertsTotal)
}
