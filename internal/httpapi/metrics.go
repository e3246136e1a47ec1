package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	controlRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "modelctl",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Control API requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	controlLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "modelctl",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Control API latency. Session starts include instance boot and port probing.",
		Buckets:   []float64{.005, .05, .25, 1, 5, 15, 60, 180, 600},
	}, []string{"route", "method"})

	controlInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "modelctl",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Control API requests being served.",
	})
)

func init() {
	prometheus.MustRegister(controlRequests, controlLatency, controlInflight)
}

// MetricsMiddleware records every control API request. Mount it inside the
// chi router so the matched route pattern is available.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		controlInflight.Inc()
		defer controlInflight.Dec()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		observe(routeLabel(r), r.Method, ww.Status(), time.Since(start))
	})
}

func observe(route, method string, status int, d time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	controlRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	controlLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// routeLabel keeps session ids out of label values.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
