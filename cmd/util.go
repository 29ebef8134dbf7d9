package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
	"github.com/recallcontext/recall-cli/credentials"
	"github.com/recallcontext/recall-cli/pkg/logging"
)

// Process-wide state shared by all commands. main installs the logger after
// parsing flags and pushes the metrics when a command finishes.
var (
	logger        logging.Logger = logging.NewNopLogger()
	clientMetrics                = client.NewMetrics()
)

// SetLogger installs the logger used by commands and the clients they create.
func SetLogger(l logging.Logger) {
	if l == nil {
		l = logging.NewNopLogger()
	}
	logger = l
}

// ClientMetrics returns the metrics recorded by every client built here.
func ClientMetrics() *client.Metrics {
	return clientMetrics
}

// NewClientFromConfig builds a backend client with the active credentials,
// the shared logger and the shared metrics.
func NewClientFromConfig(cfg *config.CLIConfig) (*client.Client, error) {
	opts := client.DefaultOptions()
	opts.Logger = logger
	opts.Metrics = clientMetrics
	opts.Credentials = activeCredentials()

	c, err := client.NewFromConfig(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return c, nil
}

// activeCredentials returns environment or stored backend credentials, or nil.
// A broken credential store is logged and ignored; the backend decides
// whether it needs credentials at all.
func activeCredentials() *credentials.Credentials {
	if creds := credentials.EnvCredential(); creds != nil {
		return creds
	}

	path, err := credentials.CredentialsPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	store, err := credentials.NewStore()
	if err != nil {
		logger.Warn("credential store unavailable", logging.Err(err))
		return nil
	}
	creds, err := store.GetActiveCredential()
	if err != nil {
		if !errors.Is(err, credentials.ErrNoCredentials) {
			logger.Warn("ignoring stored credentials", logging.Err(err))
		}
		return nil
	}
	return creds
}

// requestContext bounds a single backend request by the configured timeout.
func requestContext(ctx context.Context, cfg *config.CLIConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}

// parseID parses a positive numeric resource ID.
func parseID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q: must be a positive number", kind, arg)
	}
	return id, nil
}

// ConfirmFunc asks a yes/no question and reports the answer.
type ConfirmFunc func(prompt string) (bool, error)

// SecretFunc reads a value without echoing it.
type SecretFunc func(prompt string) (string, error)

// stdinConfirm asks on stderr and reads the answer from stdin. It refuses to
// guess when stdin is not a terminal.
func stdinConfirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("confirmation required but stdin is not a terminal; pass --yes")
	}
	return readConfirm(os.Stdin, os.Stderr, prompt)
}

// readConfirm prints prompt and accepts y/yes (any case) as consent.
func readConfirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// stdinSecret reads a secret from the terminal without echo, or one line from
// piped stdin.
func stdinSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(value)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
