package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelctl",
			Subsystem: "sessions",
			Name:      "started_total",
			Help:      "Sessions launched, by model",
		},
		[]string{"model"},
	)

	sessionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelctl",
			Subsystem: "sessions",
			Name:      "failures_total",
			Help:      "Session start failures, by stage",
		},
		[]string{"stage"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelctl",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Sessions currently tracked by the registry",
		},
	)
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionFailures, sessionsActive)
}
