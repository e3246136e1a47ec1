package remote

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestArgs(t *testing.T) {
	c := Client{User: "ubuntu", KeyPath: "/k.pem", ConnectTimeout: 5 * time.Second}
	args := c.Args("1.2.3.4", false, "uptime")
	got := strings.Join(args, " ")
	for _, want := range []string{"-i /k.pem", "StrictHostKeyChecking=no", "UserKnownHostsFile=/dev/null", "ConnectTimeout=5", "ubuntu@1.2.3.4 uptime"} {
		if !strings.Contains(got, want) {
			t.Fatalf("args %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "-tt") {
		t.Fatalf("no tty expected: %q", got)
	}
	if !strings.Contains(strings.Join(c.Args("h", true, "x"), " "), "-tt") {
		t.Fatalf("tty flag missing")
	}
}

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"/models/a.gguf": "/models/a.gguf",
		"":               "''",
		"a b":            "'a b'",
		"it's":           `'it'\''s'`,
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Fatalf("Quote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunUsesBinaryAndReportsFailure(t *testing.T) {
	// "false" ignores its arguments and exits 1
	c := Client{User: "u", KeyPath: "/k", Binary: "false"}
	if _, err := c.Run(context.Background(), "h", "x"); err == nil {
		t.Fatalf("expected error from failing binary")
	}
	c.Binary = "true"
	if _, err := c.Run(context.Background(), "h", "x"); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSpawnMergesOutputAndExits(t *testing.T) {
	p, err := Spawn(exec.Command("sh", "-c", "echo out; echo err 1>&2"))
	if err != nil { t.Fatalf("spawn: %v", err) }
	b, _ := io.ReadAll(p.Output())
	s := string(b)
	if !strings.Contains(s, "out") || !strings.Contains(s, "err") {
		t.Fatalf("merged output: %q", s)
	}
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("process did not exit")
	}
	if p.Alive() { t.Fatalf("exited process reported alive") }
	if err := p.Stop(time.Second); err != nil { t.Fatalf("stop on exited: %v", err) }
}

func TestStopTerminates(t *testing.T) {
	p, err := Spawn(exec.Command("sleep", "30"))
	if err != nil { t.Fatalf("spawn: %v", err) }
	go func() { _, _ = io.Copy(io.Discard, p.Output()) }()
	if !p.Alive() || p.PID() == 0 { t.Fatalf("expected live process") }
	if err := p.Stop(3 * time.Second); err != nil { t.Fatalf("stop: %v", err) }
	if p.Alive() { t.Fatalf("process still alive after stop") }
}

func TestStopKillsAfterGrace(t *testing.T) {
	p, err := Spawn(exec.Command("sh", "-c", "trap '' TERM; exec sleep 30"))
	if err != nil { t.Fatalf("spawn: %v", err) }
	start := time.Now()
	if err := p.Stop(100 * time.Millisecond); err != nil { t.Fatalf("stop: %v", err) }
	if p.Alive() { t.Fatalf("process survived kill") }
	if time.Since(start) > 5*time.Second { t.Fatalf("kill took too long") }
}
