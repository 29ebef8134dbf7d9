package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
)

const (
	msgSaveAPIKeyFailed   = "Failed to save API key"
	msgDeleteAPIKeyFailed = "Failed to delete API key"
	msgLoadAPIKeyFailed   = "Failed to load API key status"

	// EnvAnthropicAPIKey supplies the key to 'settings api-key set' without a prompt.
	EnvAnthropicAPIKey = "RECALL_ANTHROPIC_API_KEY"
)

// SettingsCommandDeps holds dependencies for settings commands.
type SettingsCommandDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)
	InitClient func(*config.CLIConfig) (*client.Client, error)
	Confirm    ConfirmFunc
	ReadSecret SecretFunc
	Getenv     func(string) string
}

// DefaultSettingsDeps returns default dependencies for production use.
func DefaultSettingsDeps() *SettingsCommandDeps {
	return &SettingsCommandDeps{
		LoadConfig: config.LoadConfig,
		InitClient: NewClientFromConfig,
		Confirm:    stdinConfirm,
		ReadSecret: stdinSecret,
		Getenv:     os.Getenv,
	}
}

func (d *SettingsCommandDeps) setup() (*config.CLIConfig, *client.Client, error) {
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	d.Config = cfg

	c, err := d.InitClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing client: %w", err)
	}
	return cfg, c, nil
}

// NewSettingsCommand creates the root settings command.
func NewSettingsCommand(deps *SettingsCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultSettingsDeps()
	}

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage server-side settings",
		Long: `Manage settings stored by the Recall server.

The server needs an Anthropic API key to analyse transcripts. The key is sent
once, stored encrypted by the server and never shown again.`,
	}

	apiKey := &cobra.Command{
		Use:   "api-key",
		Short: "Manage the AI provider API key",
		Long: `Save, inspect or delete the API key the server uses for transcript analysis.

Examples:
  # Save a key (prompts without echo)
  recall settings api-key set

  # Save a key from the environment
  RECALL_ANTHROPIC_API_KEY=sk-ant-... recall settings api-key set

  # Check whether a key is configured
  recall settings api-key status`,
		Aliases: []string{"apikey", "key"},
	}
	apiKey.AddCommand(newAPIKeySetCommand(deps))
	apiKey.AddCommand(newAPIKeyStatusCommand(deps))
	apiKey.AddCommand(newAPIKeyDeleteCommand(deps))

	cmd.AddCommand(apiKey)
	return cmd
}

func newAPIKeySetCommand(deps *SettingsCommandDeps) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the API key on the server",
		Long: `Save the API key on the server.

The key is taken from --key, then from $` + EnvAnthropicAPIKey + `, and is
otherwise read from the terminal without echo. Passing --key on the command
line leaves the key in your shell history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeySet(cmd.Context(), cmd.OutOrStdout(), deps, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key value")

	return cmd
}

func runAPIKeySet(ctx context.Context, out io.Writer, deps *SettingsCommandDeps, key string) error {
	key = strings.TrimSpace(key)
	if key == "" && deps.Getenv != nil {
		key = strings.TrimSpace(deps.Getenv(EnvAnthropicAPIKey))
	}
	if key == "" {
		var err error
		key, err = deps.ReadSecret("Anthropic API key: ")
		if err != nil {
			return err
		}
	}
	if key == "" {
		return fmt.Errorf("API key is required")
	}

	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	resp, err := c.SaveAPIKey(reqCtx, key)
	if err != nil {
		return reportFailure(err, msgSaveAPIKeyFailed)
	}

	fmt.Fprintln(out, "✓ API key saved")
	if resp.Message != "" {
		fmt.Fprintf(out, "  %s\n", resp.Message)
	}
	return nil
}

func newAPIKeyStatusCommand(deps *SettingsCommandDeps) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyStatus(cmd.Context(), cmd.OutOrStdout(), deps, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runAPIKeyStatus(ctx context.Context, out io.Writer, deps *SettingsCommandDeps, outputFlag string) error {
	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	format, err := resolveOutputFormat(cfg, outputFlag)
	if err != nil {
		return err
	}

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	status, err := c.GetAPIKeyStatus(reqCtx)
	if err != nil {
		return reportFailure(err, msgLoadAPIKeyFailed)
	}

	if ok, err := writeStructured(out, format, status); ok {
		return err
	}
	outputAPIKeyStatusText(out, status)
	return nil
}

// outputAPIKeyStatusText shows the configured indicator and the delete action
// only when a key is configured.
func outputAPIKeyStatusText(out io.Writer, status *client.APIKeyStatusResponse) {
	if status.Configured {
		fmt.Fprintln(out, "✓ "+apiKeyConfiguredText)
		writeStatusMessage(out, status.Message, apiKeyConfiguredText)
		fmt.Fprintln(out, "  Remove it with: recall settings api-key delete")
		return
	}

	fmt.Fprintln(out, apiKeyMissingText)
	writeStatusMessage(out, status.Message, apiKeyMissingText)
	fmt.Fprintln(out, "  Configure it with: recall settings api-key set")
}

const (
	apiKeyConfiguredText = "API key is configured"
	apiKeyMissingText    = "No API key configured"
)

// writeStatusMessage prints the backend message unless it repeats headline.
func writeStatusMessage(out io.Writer, msg, headline string) {
	msg = strings.TrimSpace(msg)
	if msg == "" || strings.EqualFold(strings.TrimSuffix(msg, "."), headline) {
		return
	}
	fmt.Fprintf(out, "  %s\n", msg)
}

func newAPIKeyDeleteCommand(deps *SettingsCommandDeps) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete",
		Short:   "Delete the API key from the server",
		Aliases: []string{"rm"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPIKeyDelete(cmd.Context(), cmd.OutOrStdout(), deps, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runAPIKeyDelete(ctx context.Context, out io.Writer, deps *SettingsCommandDeps, yes bool) error {
	if !yes {
		ok, err := deps.Confirm("Are you sure you want to delete your API key?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	resp, err := c.DeleteAPIKey(reqCtx)
	if err != nil {
		return reportFailure(err, msgDeleteAPIKeyFailed)
	}

	fmt.Fprintln(out, "API key deleted.")
	if resp.Message != "" {
		fmt.Fprintf(out, "  %s\n", resp.Message)
	}
	return nil
}
