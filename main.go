// Package main provides the recall CLI entry point.
// recall is the command-line interface for the Recall meeting transcript service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallcontext/recall-cli/cmd"
	"github.com/recallcontext/recall-cli/config"
	"github.com/recallcontext/recall-cli/pkg/buildinfo"
	"github.com/recallcontext/recall-cli/pkg/logging"
)

// metricsPushTimeout bounds the Pushgateway call made after a command.
const metricsPushTimeout = 5 * time.Second

// Global flags and state.
var (
	serverURL    string
	timeout      time.Duration
	outputFormat string
	debug        bool
	insecure     bool

	// cfg holds the configuration of the last successful load.
	cfg *config.CLIConfig
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Recall CLI - meeting transcripts, summaries and action items",
	Long: `recall is the command-line interface for the Recall meeting transcript service.

Upload meeting transcripts, then browse the summaries, participants and action
items the server extracts from them.

GETTING STARTED:
  recall config set server_url http://localhost:8080
  recall settings api-key set
  recall meeting upload 2026-01-11_1400_Standup_Platform.txt --wait
  recall meeting list

Every command supports --output json or yaml for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Commands load their own configuration; this only decides the log level.
		level := logging.LevelWarn
		if loaded, err := loadConfig(); err == nil && loaded.Debug {
			level = logging.LevelDebug
		}
		if debug {
			level = logging.LevelDebug
		}
		setupLogging(level, c.ErrOrStderr())
		return nil
	},
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (*config.CLIConfig, error) {
	loaded, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(loaded); err != nil {
		return nil, err
	}
	cfg = loaded
	return loaded, nil
}

// applyFlagOverrides copies explicitly set global flags into c.
func applyFlagOverrides(c *config.CLIConfig) error {
	if serverURL != "" {
		c.ServerURL = strings.TrimRight(serverURL, "/")
	}
	if timeout != 0 {
		c.Timeout = timeout
	}
	if outputFormat != "" {
		c.OutputFormat = config.OutputFormat(outputFormat)
	}
	if debug {
		c.Debug = true
	}
	if insecure {
		c.Insecure = true
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// setupLogging installs the process logger for commands and clients.
func setupLogging(level logging.Level, out io.Writer) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = level
	logCfg.Output = out
	cmd.SetLogger(logging.NewLogger(logCfg))
}

// Version command flags.
var versionOutputJSON bool

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the recall CLI.

Examples:
  recall version
  recall version --output-json`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get("recall-cli")
		out := c.OutOrStdout()

		if versionOutputJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		fmt.Fprintf(out, "recall %s\n", info.Version)
		fmt.Fprintf(out, "  Commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  Built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  Go version: %s\n", info.GoVersion)
		fmt.Fprintf(out, "  Platform:   %s\n", info.Platform)
		return nil
	},
}

// statusCmd checks that the server is reachable and has an API key.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connection to the Recall server",
	Long: `Check that the Recall server answers and report whether it has an API key.

Examples:
  recall status
  recall --server https://recall.example.com status`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		rc, err := cmd.NewClientFromConfig(loaded)
		if err != nil {
			return err
		}
		defer rc.Close()

		ctx, cancel := context.WithTimeout(c.Context(), loaded.Timeout)
		defer cancel()

		out := c.OutOrStdout()
		start := time.Now()
		status, err := rc.GetAPIKeyStatus(ctx)
		latency := time.Since(start).Round(time.Millisecond)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintln(out, "Connection status: UNHEALTHY")
			fmt.Fprintf(out, "  Server:  %s\n", rc.BaseURL())
			fmt.Fprintf(out, "  Error:   %s\n", err)
			return nil
		}

		fmt.Fprintln(out, "Connection status: HEALTHY")
		fmt.Fprintf(out, "  Server:  %s\n", rc.BaseURL())
		fmt.Fprintf(out, "  Latency: %s\n", latency)
		if status.Configured {
			fmt.Fprintln(out, "  API key: configured")
		} else {
			fmt.Fprintln(out, "  API key: not configured (recall settings api-key set)")
		}
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the recall CLI configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective CLI configuration: file, environment and flags combined.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		configPath, _ := config.ConfigPath()
		out := c.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:    %s\n", configPath)
		fmt.Fprintf(out, "  Server URL:     %s\n", loaded.ServerURL)
		fmt.Fprintf(out, "  Timeout:        %s\n", loaded.Timeout)
		fmt.Fprintf(out, "  Output format:  %s\n", loaded.OutputFormat)
		fmt.Fprintf(out, "  Page size:      %d\n", loaded.PageSize)
		fmt.Fprintf(out, "  Debug:          %t\n", loaded.Debug)
		fmt.Fprintf(out, "  Insecure:       %t\n", loaded.Insecure)
		if loaded.TLS.CACert != "" || loaded.TLS.ClientCert != "" {
			fmt.Fprintf(out, "  TLS CA cert:    %s\n", valueOrDefault(loaded.TLS.CACert, "(system)"))
			fmt.Fprintf(out, "  TLS client:     %s\n", valueOrDefault(loaded.TLS.ClientCert, "(none)"))
		}
		fmt.Fprintf(out, "  Pushgateway:    %s\n", valueOrDefault(loaded.Metrics.PushgatewayURL, "(disabled)"))

		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}
		out := c.OutOrStdout()

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(out, "Use 'recall config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if serverURL != "" {
			defaultCfg.ServerURL = strings.TrimRight(serverURL, "/")
		}
		if err := defaultCfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
		fmt.Fprintln(out, "\nDefault settings:")
		fmt.Fprintf(out, "  Server URL:     %s\n", defaultCfg.ServerURL)
		fmt.Fprintf(out, "  Timeout:        %s\n", defaultCfg.Timeout)
		fmt.Fprintf(out, "  Output format:  %s\n", defaultCfg.OutputFormat)
		fmt.Fprintf(out, "  Page size:      %d\n", defaultCfg.PageSize)

		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  server_url              - Recall server base URL (http://host:port)
  timeout                 - Request timeout (e.g., 30s, 2m)
  output_format           - Default output format (text, json, yaml)
  page_size               - Default page size for list commands (1-100)
  debug                   - Enable debug logging (true/false)
  insecure                - Disable TLS verification (true/false)
  metrics.pushgateway_url - Push client metrics here after each command

Examples:
  recall config set server_url https://recall.example.com
  recall config set timeout 5m
  recall config set output_format json`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.SettableKeys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		// Flags and environment are not persisted, so start from the file alone.
		currentCfg, err := config.LoadConfig()
		if err != nil {
			currentCfg = config.DefaultConfig()
		}

		if err := currentCfg.Set(key, value); err != nil {
			return err
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(c.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for recall.

To load completions:

Bash:
  $ source <(recall completion bash)

Zsh:
  $ recall completion zsh > "${fpath[1]}/_recall"

Fish:
  $ recall completion fish | source

PowerShell:
  PS> recall completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(c *cobra.Command, args []string) error {
		out := c.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Recall server URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output-format", "", "Default output format: text, json, yaml (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS verification (development only)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "meetings", Title: "Meetings:"},
		&cobra.Group{ID: "settings", Title: "Server Settings:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Meetings
	meetingDeps := cmd.DefaultMeetingDeps()
	meetingDeps.LoadConfig = loadConfig
	meetingCmd := cmd.NewMeetingCommand(meetingDeps)
	meetingCmd.GroupID = "meetings"
	rootCmd.AddCommand(meetingCmd)

	actionDeps := cmd.DefaultActionDeps()
	actionDeps.LoadConfig = loadConfig
	actionCmd := cmd.NewActionCommand(actionDeps)
	actionCmd.GroupID = "meetings"
	rootCmd.AddCommand(actionCmd)

	// Server settings
	settingsDeps := cmd.DefaultSettingsDeps()
	settingsDeps.LoadConfig = loadConfig
	settingsCmd := cmd.NewSettingsCommand(settingsDeps)
	settingsCmd.GroupID = "settings"
	rootCmd.AddCommand(settingsCmd)

	statusCmd.GroupID = "settings"
	rootCmd.AddCommand(statusCmd)

	// Setup
	configCmd.GroupID = "setup"
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)

	authDeps := cmd.DefaultAuthDeps()
	authDeps.LoadConfig = loadConfig
	authCmd := cmd.NewAuthCommand(authDeps)
	authCmd.GroupID = "setup"
	rootCmd.AddCommand(authCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	versionCmd.Flags().BoolVar(&versionOutputJSON, "output-json", false, "Output as JSON")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// SIGINT/SIGTERM cancel the in-flight request through the command context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdErr := rootCmd.ExecuteContext(ctx)

	pushMetrics()

	if cmdErr != nil {
		if errors.Is(cmdErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nInterrupted.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// pushMetrics sends the client metrics to the configured Pushgateway.
// Failures are logged and never change the exit status.
func pushMetrics() {
	if cfg == nil || !cfg.Metrics.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()

	if err := cmd.ClientMetrics().Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: pushing metrics to %s: %v\n", cfg.Metrics.PushgatewayURL, err)
	}
}
