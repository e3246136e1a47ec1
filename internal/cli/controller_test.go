package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"modelctl/internal/config"
	"modelctl/internal/httpapi"
	"modelctl/internal/manager"
	"modelctl/internal/prompt"
	"modelctl/pkg/types"
)

type fakeRegistry struct {
	mu       sync.Mutex
	starts   []manager.StartRequest
	stopped  []string
	sessions []types.SessionStatus
}

func (f *fakeRegistry) Models() []types.ModelDescriptor {
	return config.Template().Descriptors()
}

func (f *fakeRegistry) Status(context.Context) types.StatusResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.StatusResponse{InstanceID: "i-test", InstanceState: types.InstanceRunning, PublicAddress: "10.0.0.5", RemotePorts: []int{22, 8080}, Sessions: f.sessions}
}

func (f *fakeRegistry) StartSession(_ context.Context, req manager.StartRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if req.ModelID == "missing" {
		return "", manager.ErrModelNotFound(req.ModelID, []string{"gpt-oss-20b", "qwen3-embedding"})
	}
	return req.ModelID + "_8080_1", nil
}

func (f *fakeRegistry) StopSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != "m_8080_1" {
		return manager.ErrSessionNotFound(id, []string{"m_8080_1"})
	}
	f.stopped = append(f.stopped, id)
	return nil
}

// newController serves a controlService over a real listener and returns a client for it.
func newController(t *testing.T, reg *fakeRegistry, shutdowns *int) *httpapi.Client {
	t.Helper()
	return newServedController(t, controlService{reg: reg, shutdown: func(context.Context, string) (bool, error) { *shutdowns++; return true, nil }})
}

func newServedController(t *testing.T, svc controlService) *httpapi.Client {
	t.Helper()
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	c := httpapi.NewClient(srv.URL)
	if !c.Ping(context.Background()) {
		t.Fatalf("controller not reachable")
	}
	return c
}

func TestControlServiceOverHTTP(t *testing.T) {
	reg := &fakeRegistry{}
	var shutdowns int
	c := newController(t, reg, &shutdowns)
	ctx := context.Background()

	id, err := c.StartSession(ctx, types.StartSessionRequest{Model: "qwen3-embedding", Port: 8085})
	if err != nil { t.Fatalf("start: %v", err) }
	if id != "qwen3-embedding_8080_1" { t.Fatalf("id %q", id) }
	if got := reg.starts[0]; got.ModelID != "qwen3-embedding" || got.PreferredPort != 8085 || !got.NonInteractive {
		t.Fatalf("api launches must be non-interactive: %+v", got)
	}
	if _, err := c.StartSession(ctx, types.StartSessionRequest{Model: "missing"}); !httpapi.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := c.StopSession(ctx, "m_8080_1"); err != nil { t.Fatalf("stop: %v", err) }
	if err := c.StopSession(ctx, "other"); !httpapi.IsNotFound(err) { t.Fatalf("expected not found, got %v", err) }
	if err := c.StopAll(ctx); err != nil { t.Fatalf("stop-all: %v", err) }
	if shutdowns != 1 { t.Fatalf("stop-all must run the shutdown pass once, got %d", shutdowns) }
}

func TestDelegateStartNonInteractive(t *testing.T) {
	reg := &fakeRegistry{}
	var n int
	c := newController(t, reg, &n)
	var out strings.Builder
	err := delegateStart(context.Background(), &out, c, prompt.NonInteractive(nil), config.Template(), "", 0)
	if err != nil { t.Fatalf("delegate: %v", err) }
	if reg.starts[0].ModelID != "" { t.Fatalf("model should be left to the controller: %+v", reg.starts[0]) }
	if !strings.Contains(out.String(), "_8080_1 started by the running controller") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestDelegateStartSelectsModelLocally(t *testing.T) {
	reg := &fakeRegistry{}
	var n int
	c := newController(t, reg, &n)
	var out, pout strings.Builder
	p := prompt.New(strings.NewReader("2\n"), &pout, true)
	if err := delegateStart(context.Background(), &out, c, p, config.Template(), "", 8090); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	// descriptors are sorted: gpt-oss-20b, qwen3-embedding
	if got := reg.starts[0]; got.ModelID != "qwen3-embedding" || got.PreferredPort != 8090 {
		t.Fatalf("selection not forwarded: %+v", got)
	}
	if !strings.Contains(pout.String(), "1. gpt-oss-20b") { t.Fatalf("menu: %q", pout.String()) }
}

func TestStatusThroughController(t *testing.T) {
	yes := true
	reg := &fakeRegistry{sessions: []types.SessionStatus{{
		ID: "qwen3-embedding_8080_41233", ModelName: "Qwen3", URL: "http://10.0.0.5:8080",
		UptimeSeconds: 125, ProcessAlive: true, RemoteListening: &yes,
	}}}
	var n int
	c := newController(t, reg, &n)
	withCLIStubs(t, func() {
		fnLoadConfig = func(*Options) (*config.Config, error) { return config.Template(), nil }
		fnControllerClient = func(context.Context, *Options, *config.Config) *httpapi.Client { return c }
		fnNewApp = nil // must not be needed
		fnNow = func() time.Time { return time.Unix(1_700_000_000, 0) }
	})
	opts, out, _ := testOptions()
	if err := runStatus(context.Background(), opts); err != nil { t.Fatalf("status: %v", err) }
	for _, want := range []string{"i-test", "running", "10.0.0.5", "22, 8080", "qwen3-embedding_8080_41233", "2 minutes"} {
		if !strings.Contains(out.String(), want) { t.Fatalf("status output missing %q:\n%s", want, out.String()) }
	}
}

func TestStopSessionWithoutController(t *testing.T) {
	withCLIStubs(t, func() {
		fnLoadConfig = func(*Options) (*config.Config, error) { return config.Template(), nil }
		fnControllerClient = func(context.Context, *Options, *config.Config) *httpapi.Client { return nil }
	})
	opts, _, _ := testOptions()
	err := runStopSession(context.Background(), opts, "m_8080_1")
	if !manager.IsSessionNotFound(err) { t.Fatalf("expected session not found, got %v", err) }
	if !strings.Contains(err.Error(), "no controller is running") { t.Fatalf("hint missing: %v", err) }
}

func TestControlAddrResolution(t *testing.T) {
	cfg := config.Template()
	opts, _, _ := testOptions()
	if got := controlAddr(opts, cfg); got != config.DefaultControlAddr { t.Fatalf("default: %q", got) }
	opts.ControlAddr = "127.0.0.1:9999"
	if got := controlAddr(opts, cfg); got != "127.0.0.1:9999" { t.Fatalf("flag override: %q", got) }
	opts.ControlAddr = "off"
	if got := controlAddr(opts, cfg); got != "" { t.Fatalf("off: %q", got) }
	if cfg.ControlAddr != config.DefaultControlAddr { t.Fatalf("config mutated: %q", cfg.ControlAddr) }
}

func TestServeControl(t *testing.T) {
	reg := &fakeRegistry{}
	svc := controlService{reg: reg, shutdown: func(context.Context, string) (bool, error) { return true, nil }}
	srv, err := serveControl("127.0.0.1:0", httpapi.NewMux(svc), newLogger(&Options{LogLevel: "off"}, nil))
	if err != nil { t.Fatalf("serve: %v", err) }
	defer srv.Close()
	// a second listener on a busy address fails instead of blocking
	ln := httptest.NewUnstartedServer(http.NotFoundHandler())
	defer ln.Close()
	if _, err := serveControl(ln.Listener.Addr().String(), http.NotFoundHandler(), newLogger(&Options{LogLevel: "off"}, nil)); err == nil {
		t.Fatalf("expected listen error on busy address")
	}
}
