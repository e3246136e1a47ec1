package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// buildRootCmdWith constructs the cobra command tree wired to the fn* actions.
func buildRootCmdWith(opts *Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "modelctl",
		Short:         "Run model servers on an on-demand GPU instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: "  modelctl start                        # choose a model, then start it\n" +
			"  modelctl start qwen3-embedding        # start a specific model\n" +
			"  modelctl start gpt-oss-20b --port 8085\n" +
			"  modelctl status",
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{msg: err.Error()} })

	// Persistent flags -> Options
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "Configuration file, .json|.yaml|.toml (defaults MODELCTL_CONFIG or config.json)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "Log level: debug|info|warn|error (defaults MODELCTL_LOG_LEVEL, then the config file)")
	root.PersistentFlags().StringVar(&opts.ControlAddr, "control-addr", opts.ControlAddr, "Control API address; overrides control_addr from the config, \"off\" disables it")

	// sessions
	var port int
	startCmd := &cobra.Command{
		Use:   "start [model_id]",
		Short: "Start a model server session",
		Long: "Start a session for the given model. When a controller for this configuration is already\n" +
			"running the request is handed to it; otherwise this process becomes the controller and\n" +
			"stays in the foreground streaming session logs until interrupted or stop-all.",
		Example: "  modelctl start\n  modelctl start qwen3-embedding\n  modelctl start gpt-oss-20b --port 8085",
		Args:    maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := ""
			if len(args) == 1 {
				model = args[0]
			}
			if port < 0 || port > 65535 {
				return usageErrorf("invalid port %d", port)
			}
			return fnStart(cmd.Context(), opts, model, port)
		},
	}
	startCmd.Flags().IntVar(&port, "port", 0, "Preferred port (defaults to base_port)")

	stopSessionCmd := &cobra.Command{Use: "stop-session <session_id>", Short: "Stop one session", Args: exactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return fnStopSession(cmd.Context(), opts, args[0])
	}}
	stopAllCmd := &cobra.Command{Use: "stop-all", Short: "Stop every session and offer to stop the instance", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		return fnStopAll(cmd.Context(), opts)
	}}
	statusCmd := &cobra.Command{Use: "status", Short: "Show instance state, remote ports and sessions", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		return fnStatus(cmd.Context(), opts)
	}}
	modelsCmd := &cobra.Command{Use: "models", Short: "List configured models", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		return fnModels(cmd.Context(), opts)
	}}
	root.AddCommand(startCmd, stopSessionCmd, stopAllCmd, statusCmd, modelsCmd)

	// debugging
	debugPortsCmd := &cobra.Command{Use: "debug-ports", Short: "Show local, in-memory and remote port usage", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		return fnDebugPorts(cmd.Context(), opts)
	}}
	killPortsCmd := &cobra.Command{Use: "kill-ports <port> [port...]", Short: "Force-terminate whatever listens on the ports on the instance", Example: "  modelctl kill-ports 8080 8081 8082", Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return usageErrorf("kill-ports requires at least one port")
		}
		_, err := parsePorts(args)
		return err
	}, RunE: func(cmd *cobra.Command, args []string) error {
		ports, _ := parsePorts(args)
		return fnKillPorts(cmd.Context(), opts, ports)
	}}
	root.AddCommand(debugPortsCmd, killPortsCmd)

	// configuration
	addModelCmd := &cobra.Command{Use: "add-model", Short: "Interactively add a model to the configuration file", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		return fnAddModel(cmd.Context(), opts)
	}}
	var format string
	templateCmd := &cobra.Command{Use: "template", Short: "Write a multi-model configuration template", Args: exactArgs(0), RunE: func(cmd *cobra.Command, args []string) error {
		switch format {
		case "json", "yaml", "toml":
		default:
			return usageErrorf("unknown template format %q: json|yaml|toml", format)
		}
		return fnTemplate(opts, format)
	}}
	templateCmd.Flags().StringVar(&format, "format", "json", "Template format: json|yaml|toml")
	root.AddCommand(addModelCmd, templateCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout()) }})
	root.AddCommand(completionCmd)

	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s accepts %d arg(s), received %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return usageErrorf("%s accepts at most %d arg(s), received %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func parsePorts(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 || n > 65535 {
			return nil, usageErrorf("invalid port %q", a)
		}
		out = append(out, n)
	}
	return out, nil
}
