package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func TestLogPublisherRecordsLifecycle(t *testing.T) {
	h := newHarness(t, testModels, nil)
	var logs syncBuffer
	h.m.SetEventPublisher(NewLogPublisher(zerolog.New(&logs)))
	ctx := context.Background()
	id, err := h.m.StartSession(ctx, StartRequest{})
	if err != nil { t.Fatalf("start: %v", err) }
	if err := h.m.StopSession(ctx, id); err != nil { t.Fatalf("stop: %v", err) }

	out := logs.String()
	for _, want := range []string{`"event":"session_start"`, `"event":"session_ready"`, `"event":"session_stop"`, `"session":"` + id + `"`, `"url":"http://10.0.0.5:8080"`} {
		if !strings.Contains(out, want) { t.Fatalf("missing %s in:\n%s", want, out) }
	}

	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `modelctl_sessions_events_total{event="session_ready"}`) {
		t.Fatalf("event counter not exported")
	}
}

func TestLogPublisherWarnsOnFailure(t *testing.T) {
	var logs syncBuffer
	NewLogPublisher(zerolog.New(&logs)).Publish(Event{Name: EventSessionFailed, ModelID: "m", Fields: map[string]any{"error": "ssh: exit 255"}})
	if out := logs.String(); !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "ssh: exit 255") {
		t.Fatalf("output: %s", out)
	}
}
