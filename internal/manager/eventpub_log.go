package manager

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var sessionEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "modelctl",
		Subsystem: "sessions",
		Name:      "events_total",
		Help:      "Session lifecycle events, by event name",
	},
	[]string{"event"},
)

func init() {
	prometheus.MustRegister(sessionEvents)
}

// LogPublisher writes lifecycle events to a structured log and counts them.
// Failures and unexpected exits log at warn, the rest at info.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher returns a publisher writing to log.
func NewLogPublisher(log zerolog.Logger) *LogPublisher { return &LogPublisher{log: log} }

func (p *LogPublisher) Publish(e Event) {
	sessionEvents.WithLabelValues(e.Name).Inc()
	ev := p.log.Info()
	switch e.Name {
	case EventSessionFailed, EventSessionExit, EventSessionPruned:
		ev = p.log.Warn()
	}
	ev = ev.Str("event", e.Name).Str("model", e.ModelID)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, e.Fields[k])
	}
	ev.Msg("session event")
}
