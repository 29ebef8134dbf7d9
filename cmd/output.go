package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
	rcerrors "github.com/recallcontext/recall-cli/pkg/errors"
	"github.com/recallcontext/recall-cli/pkg/logging"
)

// resolveOutputFormat returns the --output flag value if set, else the
// configured default.
func resolveOutputFormat(cfg *config.CLIConfig, flagValue string) (config.OutputFormat, error) {
	if flagValue == "" {
		if cfg.OutputFormat == "" {
			return config.OutputFormatText, nil
		}
		return cfg.OutputFormat, nil
	}
	format := config.OutputFormat(flagValue)
	if !format.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", flagValue)
	}
	return format, nil
}

// writeStructured encodes v as JSON or YAML. It reports false for text output
// so the caller can render its own layout.
func writeStructured(w io.Writer, format config.OutputFormat, v interface{}) (bool, error) {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return true, enc.Encode(v)
	default:
		return false, nil
	}
}

// formatDate renders a backend timestamp as "2006-01-02 15:04".
func formatDate(ts client.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04")
}

// formatAgo renders a backend timestamp relative to now, e.g. "3 hours ago".
func formatAgo(ts *client.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts.Time)
}

// formatDue renders a due date, marking overdue dates for open items.
func formatDue(due string, status client.ActionStatus, now time.Time) string {
	if due == "" {
		return "-"
	}
	d, err := time.Parse("2006-01-02", due)
	if err != nil || status == client.ActionCompleted {
		return due
	}
	if d.Before(now.Truncate(24 * time.Hour)) {
		return due + " (overdue)"
	}
	return due
}

// humanStatus turns NOT_STARTED into "not started".
func humanStatus[S ~string](s S) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}

// truncate shortens s to at most n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// failure is a command error whose text is what the user should read: the
// backend message or a generic fallback, followed by any hint.
type failure struct {
	msg   string
	hints []string
	err   error
}

func (f *failure) Error() string {
	if len(f.hints) == 0 {
		return f.msg
	}
	return f.msg + "\n" + strings.Join(f.hints, "\n")
}

func (f *failure) Unwrap() error {
	return f.err
}

// reportFailure converts a client error into a failure carrying the backend
// message (or fallback) and the matching hint. Context cancellation passes
// and local validation errors pass through unchanged.
func reportFailure(err error, fallback string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := client.AsAPIError(err); !ok && errors.Is(err, rcerrors.ErrValidation) {
		return err
	}
	f := &failure{msg: client.MessageOr(err, fallback), err: err}
	apiErr, ok := client.AsAPIError(err)
	switch {
	case client.IsAPIKeyNotConfigured(err):
		f.hints = append(f.hints, apiKeyNotConfiguredHint)
	case ok && apiErr.Code != "":
		f.hints = append(f.hints, "Hint: "+apiErr.SuggestedAction())
	case ok && apiErr.Message == "":
		f.hints = append(f.hints, "Cause: "+apiErr.Error())
	case !ok:
		logger.Debug("request failed", logging.Err(err))
		f.hints = append(f.hints, "Cause: "+err.Error())
	}
	return f
}

// apiKeyNotConfiguredHint points the user at the settings command.
const apiKeyNotConfiguredHint = "API key not configured. Configure it with: recall settings api-key set"
