package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallcontext/recall-cli/config"
	"github.com/recallcontext/recall-cli/credentials"
)

// CredentialStore is the subset of credentials.Store the auth commands use.
type CredentialStore interface {
	Save(creds *credentials.Credentials) error
	Load() (*credentials.Credentials, error)
	Delete() error
	Exists() bool
	KeyDescription() string
}

// AuthCommandDeps holds dependencies for auth commands.
type AuthCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewStore   func() (CredentialStore, error)
	ReadSecret SecretFunc
	Getenv     func(string) string
	Now        func() time.Time
}

// DefaultAuthDeps returns default dependencies for production use.
func DefaultAuthDeps() *AuthCommandDeps {
	return &AuthCommandDeps{
		LoadConfig: config.LoadConfig,
		NewStore: func() (CredentialStore, error) {
			return credentials.NewStore()
		},
		ReadSecret: stdinSecret,
		Getenv:     os.Getenv,
		Now:        time.Now,
	}
}

func (d *AuthCommandDeps) store() (CredentialStore, error) {
	store, err := d.NewStore()
	if err != nil {
		return nil, fmt.Errorf("initializing credential store: %w", err)
	}
	return store, nil
}

type loginFlags struct {
	apiKey         string
	token          string
	expiresIn      time.Duration
	nonInteractive bool
}

// NewAuthCommand creates the auth command group.
func NewAuthCommand(deps *AuthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAuthDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage access credentials for the Recall server",
		Long: `Manage the credentials the CLI sends to a Recall server that sits behind an
authenticating proxy. A server without one needs no credentials.

These are not the Anthropic API key; that key lives on the server and is
managed with 'recall settings api-key'.

Credentials are stored encrypted in ~/.recall/credentials.yaml.

Authentication methods:
  - API Key: sent as X-API-Key (--api-key flag or RECALL_API_KEY env)
  - Token:   sent as a bearer token (--token flag or RECALL_TOKEN env)

Environment variables take precedence over stored credentials.`,
	}

	cmd.AddCommand(newAuthLoginCommand(deps))
	cmd.AddCommand(newAuthLogoutCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))

	return cmd
}

func newAuthLoginCommand(deps *AuthCommandDeps) *cobra.Command {
	var flags loginFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store access credentials",
		Long: `Store an API key or bearer token for the configured server.

Examples:
  # Interactive login (prompts for an API key, then a token)
  recall auth login

  # Login with an API key
  recall auth login --api-key rk-abc123...

  # Login with a token that expires in 12 hours
  recall auth login --token eyJhbGciOiJIUzI1NiIs... --expires-in 12h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.OutOrStdout(), deps, flags)
		},
	}

	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&flags.token, "token", "", "Bearer token for authentication")
	cmd.Flags().DurationVar(&flags.expiresIn, "expires-in", 0, "Token lifetime, if known")
	cmd.Flags().BoolVar(&flags.nonInteractive, "non-interactive", false, "Fail instead of prompting for input")

	return cmd
}

func runLogin(out io.Writer, deps *AuthCommandDeps, flags loginFlags) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store, err := deps.store()
	if err != nil {
		return err
	}

	var creds *credentials.Credentials
	switch {
	case flags.apiKey != "":
		creds = &credentials.Credentials{AuthType: credentials.AuthTypeAPIKey, APIKey: flags.apiKey}
	case flags.token != "":
		creds = &credentials.Credentials{AuthType: credentials.AuthTypeToken, Token: flags.token}
	case deps.Getenv("RECALL_API_KEY") != "":
		creds = &credentials.Credentials{AuthType: credentials.AuthTypeAPIKey, APIKey: deps.Getenv("RECALL_API_KEY")}
		fmt.Fprintln(out, "Using API key from RECALL_API_KEY environment variable")
	case deps.Getenv("RECALL_TOKEN") != "":
		creds = &credentials.Credentials{AuthType: credentials.AuthTypeToken, Token: deps.Getenv("RECALL_TOKEN")}
		fmt.Fprintln(out, "Using token from RECALL_TOKEN environment variable")
	}

	if creds == nil {
		if flags.nonInteractive {
			return fmt.Errorf("no credentials provided and --non-interactive flag set")
		}
		creds, err = promptForCredentials(deps.ReadSecret)
		if err != nil {
			return fmt.Errorf("reading credentials: %w", err)
		}
	}

	creds.ServerURL = cfg.ServerURL
	if creds.AuthType == credentials.AuthTypeToken && flags.expiresIn > 0 {
		creds.ExpiresAt = deps.Now().Add(flags.expiresIn)
	}

	if err := validateCredential(creds); err != nil {
		return fmt.Errorf("invalid credentials: %w", err)
	}

	if err := store.Save(creds); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Fprintln(out, "Login successful!")
	fmt.Fprintf(out, "  Authentication type: %s\n", creds.AuthType)
	if creds.AuthType == credentials.AuthTypeAPIKey {
		fmt.Fprintf(out, "  API Key: %s\n", credentials.MaskAPIKey(creds.APIKey))
	} else {
		fmt.Fprintf(out, "  Token: %s\n", credentials.MaskToken(creds.Token))
		if !creds.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "  Expires: %s\n", credentials.FormatExpiry(creds.ExpiresAt))
		}
	}
	fmt.Fprintf(out, "  Server: %s\n", creds.ServerURL)
	fmt.Fprintf(out, "  Encryption: %s\n", store.KeyDescription())

	return nil
}

// promptForCredentials asks for an API key, then a token if none was given.
func promptForCredentials(readSecret SecretFunc) (*credentials.Credentials, error) {
	apiKey, err := readSecret("API Key (press Enter to use a token instead): ")
	if err != nil {
		return nil, fmt.Errorf("reading API key: %w", err)
	}
	if apiKey != "" {
		return &credentials.Credentials{AuthType: credentials.AuthTypeAPIKey, APIKey: apiKey}, nil
	}

	token, err := readSecret("Token: ")
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("no credentials provided")
	}
	return &credentials.Credentials{AuthType: credentials.AuthTypeToken, Token: token}, nil
}

// validateCredential performs basic validation on credentials.
func validateCredential(creds *credentials.Credentials) error {
	switch creds.AuthType {
	case credentials.AuthTypeAPIKey:
		if creds.APIKey == "" {
			return fmt.Errorf("API key is empty")
		}
		if len(creds.APIKey) < 8 {
			return fmt.Errorf("API key is too short")
		}
		if strings.ContainsAny(creds.APIKey, " \t\r\n") {
			return fmt.Errorf("API key contains whitespace")
		}
	case credentials.AuthTypeToken:
		if creds.Token == "" {
			return fmt.Errorf("token is empty")
		}
		if strings.ContainsAny(creds.Token, " \t\r\n") {
			return fmt.Errorf("token contains whitespace")
		}
		// Tokens shaped like a JWT must have all three parts.
		if strings.Contains(creds.Token, ".") && len(strings.Split(creds.Token, ".")) != 3 {
			return fmt.Errorf("invalid JWT token format")
		}
	default:
		return fmt.Errorf("unknown authentication type: %s", creds.AuthType)
	}
	return nil
}

func newAuthLogoutCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long: `Remove stored credentials from the local credential store.
Environment variables (RECALL_API_KEY, RECALL_TOKEN) are not affected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout(), deps)
		},
	}
}

func runLogout(out io.Writer, deps *AuthCommandDeps) error {
	store, err := deps.store()
	if err != nil {
		return err
	}

	if !store.Exists() {
		fmt.Fprintln(out, "No stored credentials found.")
		return nil
	}

	if err := store.Delete(); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}

	fmt.Fprintln(out, "Logged out. Stored credentials have been removed.")

	for _, env := range []string{"RECALL_API_KEY", "RECALL_TOKEN"} {
		if deps.Getenv(env) != "" {
			fmt.Fprintf(out, "\nNote: %s environment variable is still set.\n", env)
			fmt.Fprintf(out, "Unset it with: unset %s\n", env)
		}
	}
	return nil
}

func newAuthStatusCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout(), deps)
		},
	}
}

func runAuthStatus(out io.Writer, deps *AuthCommandDeps) error {
	store, err := deps.store()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Authentication Status")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	envAPIKey := deps.Getenv("RECALL_API_KEY")
	envToken := deps.Getenv("RECALL_TOKEN")
	hasEnvCreds := envAPIKey != "" || envToken != ""

	if hasEnvCreds {
		fmt.Fprintln(out, "Environment Variables:")
		if envAPIKey != "" {
			fmt.Fprintf(out, "  RECALL_API_KEY: %s (active)\n", credentials.MaskAPIKey(envAPIKey))
		} else {
			fmt.Fprintln(out, "  RECALL_API_KEY: (not set)")
		}
		if envToken != "" {
			fmt.Fprintf(out, "  RECALL_TOKEN: %s\n", credentials.MaskToken(envToken))
		} else {
			fmt.Fprintln(out, "  RECALL_TOKEN: (not set)")
		}
		fmt.Fprintln(out)
	}

	creds, err := store.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			fmt.Fprintln(out, "Stored Credentials: None")
			if !hasEnvCreds {
				fmt.Fprintln(out, "\nNo credentials. Servers behind an authenticating proxy need 'recall auth login'.")
			}
			return nil
		}
		return fmt.Errorf("loading credentials: %w", err)
	}

	fmt.Fprintln(out, "Stored Credentials:")
	fmt.Fprintf(out, "  Type: %s\n", creds.AuthType)
	switch creds.AuthType {
	case credentials.AuthTypeAPIKey:
		fmt.Fprintf(out, "  API Key: %s\n", credentials.MaskAPIKey(creds.APIKey))
	case credentials.AuthTypeToken:
		fmt.Fprintf(out, "  Token: %s\n", credentials.MaskToken(creds.Token))
		if !creds.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "  Expires: %s (%s)\n",
				creds.ExpiresAt.Format(time.RFC3339),
				credentials.FormatExpiry(creds.ExpiresAt))
		}
	}
	if creds.ServerURL != "" {
		fmt.Fprintf(out, "  Server: %s\n", creds.ServerURL)
	}
	fmt.Fprintf(out, "  Last Updated: %s\n", creds.LastUpdated.Format(time.RFC3339))
	fmt.Fprintf(out, "  Encryption: %s\n", store.KeyDescription())

	fmt.Fprintln(out)
	if hasEnvCreds {
		fmt.Fprintln(out, "Active Credential Source: Environment variable")
	} else {
		fmt.Fprintln(out, "Active Credential Source: Stored credentials")
	}

	if creds.AuthType == credentials.AuthTypeToken && !creds.ExpiresAt.IsZero() {
		now := deps.Now()
		if now.After(creds.ExpiresAt) {
			fmt.Fprintln(out, "\nWarning: Stored token has expired. Run 'recall auth login'.")
		} else if creds.ExpiresAt.Sub(now) < time.Hour {
			fmt.Fprintln(out, "\nWarning: Token expires within the hour.")
		}
	}

	return nil
}
