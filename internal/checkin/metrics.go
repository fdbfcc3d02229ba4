package checkin

import "github.com/prometheus/client_golang/prometheus"

var (
	// scansTotal counts scan attempts by outcome
	// (opened|cooldown|recent|busy|invalid|error).
	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_scans_total",
			Help: "QR scans by outcome.",
		},
		[]string{"outcome"},
	)

	// confirmsTotal counts dialog confirmations by result
	// (entered|already_registered|skipped|error).
	confirmsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_confirmations_total",
			Help: "Check-in confirmations by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(scansTotal, confirmsTotal)
}
