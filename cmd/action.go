package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
)

const (
	msgLoadActionsFailed  = "Failed to load action items"
	msgLoadActionFailed   = "Failed to load action item"
	msgUpdateActionFailed = "Failed to update action item"
)

// ActionCommandDeps holds dependencies for action item commands.
type ActionCommandDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)
	InitClient func(*config.CLIConfig) (*client.Client, error)
	Now        func() time.Time
}

// DefaultActionDeps returns default dependencies for production use.
func DefaultActionDeps() *ActionCommandDeps {
	return &ActionCommandDeps{
		LoadConfig: config.LoadConfig,
		InitClient: NewClientFromConfig,
		Now:        time.Now,
	}
}

func (d *ActionCommandDeps) setup() (*config.CLIConfig, *client.Client, error) {
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

func (d *ActionCommandDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// NewActionCommand creates the root action command.
func NewActionCommand(deps *ActionCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultActionDeps()
	}

	cmd := &cobra.Command{
		Use:   "action",
		Short: "Track action items extracted from meetings",
		Long: `List and update the action items the server extracted from meetings.

Statuses: NOT_STARTED, IN_PROGRESS, COMPLETED, BLOCKED.
Priorities: high, medium, low.

Examples:
  recall action list
  recall action show 7
  recall action update 7 --status completed
  recall action update 7 --assignee Sam --due 2026-02-01 --priority high`,
		Aliases: []string{"actions"},
	}

	cmd.AddCommand(newActionListCommand(deps))
	cmd.AddCommand(newActionShowCommand(deps))
	cmd.AddCommand(newActionUpdateCommand(deps))

	return cmd
}

func newActionListCommand(deps *ActionCommandDeps) *cobra.Command {
	var (
		page         int
		size         int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List action items",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActionList(cmd.Context(), cmd.OutOrStdout(), deps, page, size, outputFormat)
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default from config)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runActionList(ctx context.Context, out io.Writer, deps *ActionCommandDeps, page, size int, outputFlag string) error {
	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	format, err := resolveOutputFormat(cfg, outputFlag)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = cfg.PageSize
	}

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	resp, err := c.ListActions(reqCtx, page, size)
	if err != nil {
		return reportFailure(err, msgLoadActionsFailed)
	}

	if ok, err := writeStructured(out, format, resp); ok {
		return err
	}

	if len(resp.Content) == 0 {
		fmt.Fprintln(out, "No action items.")
		return nil
	}

	now := deps.now()
	fmt.Fprintf(out, "Action items (page %d of %d, %d total):\n\n", resp.Number+1, max(resp.TotalPages, 1), resp.TotalElements)
	fmt.Fprintf(out, "  %-6s %-12s %-8s %-16s %-22s %s\n", "ID", "STATUS", "PRIORITY", "ASSIGNEE", "DUE", "DESCRIPTION")
	fmt.Fprintf(out, "  %-6s %-12s %-8s %-16s %-22s %s\n", "--", "------", "--------", "--------", "---", "-----------")
	for _, a := range resp.Content {
		fmt.Fprintf(out, "  %-6d %-12s %-8s %-16s %-22s %s\n",
			a.ID,
			humanStatus(a.Status),
			valueOrDefault(a.Priority, "-"),
			truncate(valueOrDefault(a.Assignee, "-"), 16),
			formatDue(a.DueDate, a.Status, now),
			truncate(a.Description, 60),
		)
	}
	if resp.Number+1 < resp.TotalPages {
		fmt.Fprintf(out, "\nNext page: recall action list --page %d\n", resp.Number+1)
	}
	return nil
}

func newActionShowCommand(deps *ActionCommandDeps) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show an action item",
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("action", args[0])
			if err != nil {
				return err
			}
			return runActionShow(cmd.Context(), cmd.OutOrStdout(), deps, id, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runActionShow(ctx context.Context, out io.Writer, deps *ActionCommandDeps, id int64, outputFlag string) error {
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

	action, err := c.GetAction(reqCtx, id)
	if err != nil {
		return reportFailure(err, msgLoadActionFailed)
	}

	if ok, err := writeStructured(out, format, action); ok {
		return err
	}
	outputActionText(out, action, deps.now())
	return nil
}

func outputActionText(out io.Writer, a *client.ActionItemDetail, now time.Time) {
	fmt.Fprintf(out, "Action %d: %s\n", a.ID, a.Description)
	fmt.Fprintf(out, "  Status:    %s\n", humanStatus(a.Status))
	fmt.Fprintf(out, "  Priority:  %s\n", valueOrDefault(a.Priority, "-"))
	fmt.Fprintf(out, "  Assignee:  %s\n", valueOrDefault(a.Assignee, "-"))
	fmt.Fprintf(out, "  Due:       %s\n", formatDue(a.DueDate, a.Status, now))
	if a.Notes != "" {
		fmt.Fprintf(out, "  Notes:     %s\n", a.Notes)
	}
	if a.CompletedAt != nil && !a.CompletedAt.IsZero() {
		fmt.Fprintf(out, "  Completed: %s\n", formatAgo(a.CompletedAt))
	}
	fmt.Fprintf(out, "  Updated:   %s\n", formatAgo(a.UpdatedAt))
	if a.MeetingID > 0 {
		fmt.Fprintf(out, "  Meeting:   recall meeting show %d\n", a.MeetingID)
	}
}

type actionUpdateFlags struct {
	status       string
	assignee     string
	due          string
	priority     string
	notes        string
	outputFormat string
}

func newActionUpdateCommand(deps *ActionCommandDeps) *cobra.Command {
	var flags actionUpdateFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an action item",
		Long: `Change the status, assignee, due date, priority or notes of an action item.
Only the flags given are changed.

Examples:
  recall action update 7 --status in-progress
  recall action update 7 --due 2026-02-01 --priority high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("action", args[0])
			if err != nil {
				return err
			}
			return runActionUpdate(cmd.Context(), cmd.OutOrStdout(), deps, id, flags)
		},
	}

	cmd.Flags().StringVar(&flags.status, "status", "", "New status: not-started, in-progress, completed, blocked")
	cmd.Flags().StringVar(&flags.assignee, "assignee", "", "New assignee")
	cmd.Flags().StringVar(&flags.due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.priority, "priority", "", "New priority: high, medium, low")
	cmd.Flags().StringVar(&flags.notes, "notes", "", "Notes")
	cmd.Flags().StringVarP(&flags.outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

// normalizeActionStatus accepts "in-progress", "in progress" or "IN_PROGRESS".
func normalizeActionStatus(s string) client.ActionStatus {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return client.ActionStatus(s)
}

func runActionUpdate(ctx context.Context, out io.Writer, deps *ActionCommandDeps, id int64, flags actionUpdateFlags) error {
	req := &client.ActionUpdateRequest{
		Assignee: strings.TrimSpace(flags.assignee),
		DueDate:  strings.TrimSpace(flags.due),
		Priority: strings.ToLower(strings.TrimSpace(flags.priority)),
		Notes:    flags.notes,
	}
	if flags.status != "" {
		req.Status = normalizeActionStatus(flags.status)
	}
	if req.IsEmpty() {
		return fmt.Errorf("nothing to update: pass at least one of --status, --assignee, --due, --priority, --notes")
	}

	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	format, err := resolveOutputFormat(cfg, flags.outputFormat)
	if err != nil {
		return err
	}

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	var action *client.ActionItemDetail
	if req.StatusOnly() {
		action, err = c.UpdateActionStatus(reqCtx, id, req.Status)
	} else {
		action, err = c.UpdateAction(reqCtx, id, req)
	}
	if err != nil {
		return reportFailure(err, msgUpdateActionFailed)
	}

	if ok, err := writeStructured(out, format, action); ok {
		return err
	}
	fmt.Fprintf(out, "Updated action %d.\n", action.ID)
	outputActionText(out, action, deps.now())
	return nil
}
