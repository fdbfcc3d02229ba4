package forecast

import "github.com/prometheus/client_golang/prometheus"

var (
	// flushTotal counts completed flushes by outcome (all|partial|failed).
	flushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_flush_total",
			Help: "Forecast batch saves by outcome.",
		},
		[]string{"outcome"},
	)

	// changesTotal counts individual change writes by result (ok|error).
	changesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecast_changes_saved_total",
			Help: "Forecast change writes by result.",
		},
		[]string{"result"},
	)

	// queuesActive gauges live per-user queues.
	queuesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forecast_queues_active",
			Help: "Number of live forecast queues.",
		},
	)
)

func init() {
	prometheus.MustRegister(flushTotal, changesTotal, queuesActive)
}
