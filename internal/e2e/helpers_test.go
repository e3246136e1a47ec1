package e2e

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"modelctl/internal/httpapi"
	"modelctl/internal/manager"
	"modelctl/internal/ports"
	"modelctl/internal/remote"
	"modelctl/pkg/types"
)

// fakeSSH stands in for the ssh client: it answers the listening-socket query
// with a canned netstat table and runs anything else locally.
const fakeSSH = `#!/bin/sh
for last; do :; done
case "$last" in
*netstat*)
	echo "Proto Recv-Q Send-Q Local Address Foreign Address State"
	echo "tcp 0 0 0.0.0.0:22 0.0.0.0:* LISTEN"
	for p in $REMOTE_BUSY; do echo "tcp 0 0 0.0.0.0:$p 0.0.0.0:* LISTEN"; done
	exit 0;;
esac
exec sh -c "$last"
`

// fakeServer prints one line and lives until its parent shell is gone.
const fakeServer = `#!/bin/sh
echo "llama-server $*"
while kill -0 $PPID 2>/dev/null; do sleep 0.2; done
`

type runningInstance struct{}

func (runningInstance) EnsureRunning(context.Context) (string, error) { return "127.0.0.1", nil }

func (runningInstance) Status(context.Context) (types.InstanceState, string, error) {
	return types.InstanceRunning, "127.0.0.1", nil
}

func (runningInstance) InstanceID() string { return "i-e2e" }

// service exposes a registry over the control API the way a controller does.
type service struct{ m *manager.Manager }

func (s service) Models() []types.ModelDescriptor { return s.m.Models() }
func (s service) Status(ctx context.Context) types.StatusResponse { return s.m.Status(ctx) }
func (s service) StartSession(ctx context.Context, req types.StartSessionRequest) (string, error) {
	return s.m.StartSession(ctx, manager.StartRequest{ModelID: req.Model, PreferredPort: req.Port, NonInteractive: true})
}
func (s service) StopSession(ctx context.Context, id string) error { return s.m.StopSession(ctx, id) }
func (s service) StopAll(ctx context.Context) error                { return s.m.StopAll(ctx) }

type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

type controller struct {
	srv    *httptest.Server
	client *httpapi.Client
	mgr    *manager.Manager
	logs   *lockedBuffer
	base   int
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { t.Fatalf("mkdir: %v", err) }
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil { t.Fatalf("write %s: %v", path, err) }
}

// freePort returns a port nothing listens on right now.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// newController wires the real registry, port allocator and ssh client (backed
// by fakeSSH) behind the control API.
func newController(t *testing.T, remoteBusyOffsets ...int) *controller {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	workDir := filepath.Join(dir, "llama.cpp")
	writeScript(t, filepath.Join(workDir, "build", "bin", "llama-server"), fakeServer)
	sshBin := filepath.Join(dir, "ssh")
	writeScript(t, sshBin, fakeSSH)
	key := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(key, []byte("key"), 0o644); err != nil { t.Fatalf("key: %v", err) }

	c := &controller{logs: &lockedBuffer{}, base: freePort(t)}
	busy := make([]string, len(remoteBusyOffsets))
	for i, off := range remoteBusyOffsets {
		busy[i] = strconv.Itoa(c.base + off)
	}
	t.Setenv("REMOTE_BUSY", strings.Join(busy, " "))
	log := zerolog.New(c.logs)
	ssh := remote.Client{User: "ubuntu", KeyPath: key, Binary: sshBin}
	inst := runningInstance{}
	c.mgr = manager.NewWithConfig(manager.ManagerConfig{
		Models: []types.ModelDescriptor{
			{ID: "tiny", Name: "Tiny", Path: "/models/tiny.gguf", GPULayers: 8, Threads: 2, Embedding: true},
			{ID: "chat", Name: "Chat", Path: "/models/chat.gguf", GPULayers: 32, Threads: 4},
		},
		WorkDir:  workDir,
		BasePort: c.base,
		KeyPath:  key,
		Instance: inst,
		Ports:    ports.New(inst, ssh, ports.DefaultOptions(c.base), log),
		Launcher: ssh,
		Logger:   log,
	})
	c.srv = httptest.NewServer(httpapi.NewMux(service{m: c.mgr}))
	c.client = httpapi.NewClient(c.srv.URL)
	t.Cleanup(func() {
		c.srv.Close()
		_ = c.mgr.StopAll(context.Background())
		c.mgr.Wait()
	})
	return c
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
