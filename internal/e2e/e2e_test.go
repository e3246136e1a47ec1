package e2e

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"modelctl/internal/httpapi"
	"modelctl/pkg/types"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// TestE2E_SessionLifecycle drives start, status and stop through the control
// API against a fake instance reached over the ssh code path.
func TestE2E_SessionLifecycle(t *testing.T) {
	c := newController(t)
	ctx := context.Background()

	id, err := c.client.StartSession(ctx, types.StartSessionRequest{Model: "tiny"})
	if err != nil { t.Fatalf("start: %v", err) }
	prefix := "tiny_" + strconv.Itoa(c.base) + "_"
	if !strings.HasPrefix(id, prefix) { t.Fatalf("id %q does not start with %q", id, prefix) }

	want := "llama-server -m /models/tiny.gguf --host 0.0.0.0 --port " + strconv.Itoa(c.base) + " --n-gpu-layers 8 --threads 2 --embedding"
	waitFor(t, "relayed server output", func() bool {
		l := c.logs.String()
		return strings.Contains(l, want) && strings.Contains(l, `"session":"`+id+`"`)
	})

	st, err := c.client.Status(ctx)
	if err != nil { t.Fatalf("status: %v", err) }
	if st.InstanceID != "i-e2e" || st.InstanceState != types.InstanceRunning { t.Fatalf("instance: %+v", st) }
	if len(st.RemotePorts) != 1 || st.RemotePorts[0] != 22 { t.Fatalf("remote ports: %v", st.RemotePorts) }
	if len(st.Sessions) != 1 { t.Fatalf("sessions: %+v", st.Sessions) }
	s := st.Sessions[0]
	if !s.ProcessAlive { t.Fatalf("process should be alive: %+v", s) }
	// alive locally but not listening remotely: both signals are reported
	if s.RemoteListening == nil || *s.RemoteListening { t.Fatalf("remote listening: %v", s.RemoteListening) }

	if err := c.client.StopSession(ctx, id); err != nil { t.Fatalf("stop: %v", err) }
	if err := c.client.StopSession(ctx, id); err != nil { t.Fatalf("repeated stop must be a no-op: %v", err) }
	if err := c.client.StopSession(ctx, "tiny_1_1"); !httpapi.IsNotFound(err) { t.Fatalf("unknown stop: %v", err) }
	if c.mgr.Len() != 0 { t.Fatalf("registry not empty") }
	waitFor(t, "process exit", func() bool { return strings.Contains(c.logs.String(), "session process exited") })
}

// TestE2E_RemoteBusySkipsPort shows a port held on the instance is never handed out,
// and that a second model gets yet another port.
func TestE2E_RemoteBusySkipsPort(t *testing.T) {
	c := newController(t, 0, 1)
	base := c.base
	ctx := context.Background()

	first, err := c.client.StartSession(ctx, types.StartSessionRequest{Model: "tiny", Port: base})
	if err != nil { t.Fatalf("start: %v", err) }
	second, err := c.client.StartSession(ctx, types.StartSessionRequest{Model: "chat", Port: base})
	if err != nil { t.Fatalf("start second: %v", err) }
	ports := c.mgr.SessionPorts()
	p1, p2 := ports[first], ports[second]
	if p1 == base || p1 == base+1 || p2 == base || p2 == base+1 {
		t.Fatalf("remotely busy port handed out: %d %d", p1, p2)
	}
	if p1 == p2 { t.Fatalf("two sessions share port %d", p1) }

	if err := c.client.StopAll(ctx); err != nil { t.Fatalf("stop-all: %v", err) }
	if c.mgr.Len() != 0 { t.Fatalf("sessions left after stop-all") }
}

func TestE2E_UnknownModelAndProbes(t *testing.T) {
	c := newController(t)
	_, err := c.client.StartSession(context.Background(), types.StartSessionRequest{Model: "nope"})
	if !httpapi.IsNotFound(err) { t.Fatalf("expected 404, got %v", err) }
	if !strings.Contains(err.Error(), "chat") || !strings.Contains(err.Error(), "tiny") {
		t.Fatalf("error should list known models: %v", err)
	}

	resp, body := httpGet(t, c.srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || string(body) != "ok" { t.Fatalf("healthz: %d %q", resp.StatusCode, body) }
	resp, body = httpGet(t, c.srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "modelctl_") { t.Fatalf("metrics: %d", resp.StatusCode) }
}
