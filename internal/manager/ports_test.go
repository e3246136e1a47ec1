package manager

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"modelctl/internal/ports"
)

// listenWithFreeNeighbor occupies a local port whose successor accepts nothing.
func listenWithFreeNeighbor(t *testing.T) (net.Listener, int) {
	t.Helper()
	for i := 0; i < 20; i++ {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil { t.Fatalf("listen: %v", err) }
		base := ln.Addr().(*net.TCPAddr).Port
		c, err := net.DialTimeout("tcp", "127.0.0.1:"+strconv.Itoa(base+1), 200*time.Millisecond)
		if err != nil && base < 65535 {
			return ln, base
		}
		if c != nil {
			_ = c.Close()
		}
		_ = ln.Close()
	}
	t.Skip("no local port with a free neighbor")
	return nil, 0
}

// Something local already holds the base port: the session takes the next one.
func TestStartSessionSkipsLocallyBusyBasePort(t *testing.T) {
	ln, base := listenWithFreeNeighbor(t)
	defer ln.Close()

	h := newHarness(t, testModels, nil)
	h.m.ports = ports.New(h.inst, nil, ports.DefaultOptions(base), zerolog.Nop())
	h.m.basePort = base

	id, err := h.m.StartSession(context.Background(), StartRequest{})
	if err != nil { t.Fatalf("start: %v", err) }
	s, ok := h.m.Lookup(id)
	if !ok || s.Port != base+1 { t.Fatalf("expected port %d, got %+v", base+1, s) }
	if want := "qwen3-embedding_" + strconv.Itoa(base+1) + "_"; !hasPrefix(id, want) {
		t.Fatalf("id %q does not carry the chosen port", id)
	}
}
