// Package remote runs commands on the instance through the system ssh client.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Client holds the connection parameters shared by every ssh invocation.
type Client struct {
	User           string
	KeyPath        string
	ConnectTimeout time.Duration
	// Binary defaults to "ssh".
	Binary string
}

func (c Client) binary() string {
	if c.Binary == "" {
		return "ssh"
	}
	return c.Binary
}

// Args builds the ssh argument list. tty forces a remote pseudo-terminal so
// that the remote command dies with the connection.
func (c Client) Args(host string, tty bool, command string) []string {
	args := []string{
		"-i", c.KeyPath,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", "LogLevel=ERROR",
		"-o", "BatchMode=yes",
	}
	if c.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", int(c.ConnectTimeout.Seconds())))
	}
	if tty {
		args = append(args, "-tt")
	}
	return append(args, fmt.Sprintf("%s@%s", c.User, host), command)
}

// Run executes command on host and returns its stdout. The deadline comes from ctx.
func (c Client) Run(ctx context.Context, host, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary(), c.Args(host, false, command)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), fmt.Errorf("ssh %s: %w", host, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return stdout.Bytes(), fmt.Errorf("ssh %s: %w: %s", host, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("ssh %s: %w", host, err)
	}
	return stdout.Bytes(), nil
}

// Launch starts a long-running command on host. The process is not bound to
// ctx; it lives until Stop or until the remote side exits.
func (c Client) Launch(ctx context.Context, host, command string) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Spawn(exec.Command(c.binary(), c.Args(host, true, command)...))
}

// Quote wraps s in single quotes for a POSIX shell.
func Quote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=+@%,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
