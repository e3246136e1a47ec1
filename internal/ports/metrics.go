package ports

import "github.com/prometheus/client_golang/prometheus"

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelctl",
			Subsystem: "ports",
			Name:      "probes_total",
			Help:      "Port probes by scope and outcome",
		},
		[]string{"scope", "result"},
	)

	allocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelctl",
			Subsystem: "ports",
			Name:      "allocations_total",
			Help:      "Port allocations by phase that produced the port",
		},
		[]string{"phase"},
	)
)

func init() {
	prometheus.MustRegister(probesTotal, allocationsTotal)
}

func observeProbe(scope string, busy bool) {
	r := "free"
	if busy {
		r = "busy"
	}
	probesTotal.WithLabelValues(scope, r).Inc()
}
