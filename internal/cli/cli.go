// Package cli is the modelctl command line: flag handling, the cobra command
// tree and the wiring of every component for the controller process.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"modelctl/internal/common/logging"
)

// Options carries the global flags shared by every command.
type Options struct {
	ConfigPath  string
	LogLevel    string
	ControlAddr string

	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions seeds the global flags from the environment.
func DefaultOptions() *Options {
	return &Options{
		ConfigPath:  logging.EnvStr("MODELCTL_CONFIG", "config.json"),
		LogLevel:    logging.EnvStr("MODELCTL_LOG_LEVEL", ""),
		ControlAddr: logging.EnvStr("MODELCTL_CONTROL_ADDR", ""),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

func (o *Options) out() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o *Options) errOut() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// MainWithArgs runs the command line and returns the process exit code:
// 0 on success, 1 when a command fails and 2 on usage errors.
func MainWithArgs(args []string) int {
	return mainWith(DefaultOptions(), args)
}

func mainWith(opts *Options, args []string) int {
	if len(args) == 0 {
		root := buildRootCmdWith(opts)
		root.SetOut(opts.errOut())
		_ = root.Usage()
		return 2
	}
	root := buildRootCmdWith(opts)
	root.SetArgs(args)
	root.SetOut(opts.out())
	root.SetErr(opts.errOut())
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(opts.errOut(), "error:", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/modelctl.
func Main() int { return MainWithArgs(os.Args[1:]) }

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

func isUsageError(err error) bool {
	var u usageError
	if errors.As(err, &u) {
		return true
	}
	// cobra reports unknown subcommands as plain errors
	return strings.HasPrefix(err.Error(), "unknown command")
}
