package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelctl/internal/common/fsutil"
	"modelctl/internal/common/logging"
	"modelctl/internal/config"
	"modelctl/internal/httpapi"
	"modelctl/internal/instance"
	"modelctl/internal/manager"
	"modelctl/internal/ports"
	"modelctl/internal/prompt"
	"modelctl/internal/remote"
)

// sshConnectTimeout bounds connection setup of every ssh invocation.
const sshConnectTimeout = 10 * time.Second

// app is every component of a controller process, wired from one configuration.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	prompt *prompt.Prompter
	inst   *instance.Controller
	ssh    remote.Client
	ports  *ports.Allocator
	mgr    *manager.Manager
}

// loadConfig reads the configuration named by the global flags.
func loadConfig(opts *Options) (*config.Config, error) {
	return config.Load(opts.ConfigPath)
}

func newLogger(opts *Options, cfg *config.Config) zerolog.Logger {
	level := opts.LogLevel
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	return logging.New(opts.errOut(), level)
}

// controlAddr resolves the control API address; empty means disabled.
func controlAddr(opts *Options, cfg *config.Config) string {
	if opts.ControlAddr != "" {
		c := *cfg
		c.ControlAddr = opts.ControlAddr
		cfg = &c
	}
	if !cfg.ControlEnabled() {
		return ""
	}
	return strings.TrimSpace(cfg.ControlAddr)
}

// controllerClient returns a client for a running controller, or nil when
// the control API is disabled or nothing answers.
func controllerClient(ctx context.Context, opts *Options, cfg *config.Config) *httpapi.Client {
	addr := controlAddr(opts, cfg)
	if addr == "" {
		return nil
	}
	c := httpapi.NewClient(addr)
	if !c.Ping(ctx) {
		return nil
	}
	return c
}

// newApp wires the instance controller, ssh client, port allocator and session
// registry for cfg.
func newApp(ctx context.Context, opts *Options, cfg *config.Config) (*app, error) {
	log := newLogger(opts, cfg)
	p := prompt.Stdio()
	inst, err := instance.NewFromConfig(ctx, cfg, log, p)
	if err != nil {
		return nil, err
	}
	key, err := fsutil.ExpandHome(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh key: %w", err)
	}
	ssh := remote.Client{User: cfg.EC2User, KeyPath: key, ConnectTimeout: sshConnectTimeout}
	alloc := ports.New(inst, ssh, ports.DefaultOptions(cfg.BasePort), log.With().Str("component", "ports").Logger())
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Models:   cfg.Descriptors(),
		WorkDir:  cfg.ServerWorkDir,
		BasePort: cfg.BasePort,
		KeyPath:  key,
		Instance: inst,
		Ports:    alloc,
		Launcher: ssh,
		Prompter: p,
		Logger:   log,
	})
	mgr.SetEventPublisher(manager.NewLogPublisher(log.With().Str("component", "events").Logger()))
	return &app{cfg: cfg, log: log, prompt: p, inst: inst, ssh: ssh, ports: alloc, mgr: mgr}, nil
}
