// Package cmd provides CLI commands for the recall tool.
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
	"github.com/recallcontext/recall-cli/pkg/transcript"
)

// User-facing fallbacks when the backend gives no message.
const (
	msgLoadMeetingsFailed = "Failed to load meetings"
	msgLoadMeetingFailed  = "Failed to load meeting"
)

// MeetingCommandDeps holds dependencies for meeting commands.
type MeetingCommandDeps struct {
	Config     *config.CLIConfig
	LoadConfig func() (*config.CLIConfig, error)
	InitClient func(*config.CLIConfig) (*client.Client, error)
	Confirm    ConfirmFunc
	ReadFile   func(path string) (*transcript.File, error)
	Now        func() time.Time
}

// DefaultMeetingDeps returns default dependencies for production use.
func DefaultMeetingDeps() *MeetingCommandDeps {
	return &MeetingCommandDeps{
		LoadConfig: config.LoadConfig,
		InitClient: NewClientFromConfig,
		Confirm:    stdinConfirm,
		ReadFile:   transcript.ReadFile,
		Now:        time.Now,
	}
}

// setup loads configuration and builds a client.
func (d *MeetingCommandDeps) setup() (*config.CLIConfig, *client.Client, error) {
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

// NewMeetingCommand creates the root meeting command with all subcommands.
func NewMeetingCommand(deps *MeetingCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultMeetingDeps()
	}

	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Upload transcripts and browse analysed meetings",
		Long: `Upload meeting transcripts and browse the summaries, participants and action
items the backend extracted from them.

Examples:
  # List the most recent meetings
  recall meeting list

  # Upload a transcript and wait for analysis
  recall meeting upload 2026-01-11_1400_Standup_Platform.txt --wait

  # Show a meeting with its summary and action items
  recall meeting show 42

  # Output as JSON
  recall meeting show 42 -o json`,
		Aliases: []string{"meetings"},
	}

	cmd.AddCommand(newMeetingListCommand(deps))
	cmd.AddCommand(newMeetingShowCommand(deps))
	cmd.AddCommand(newMeetingStatusCommand(deps))
	cmd.AddCommand(newMeetingDeleteCommand(deps))
	cmd.AddCommand(newMeetingUploadCommand(deps))

	return cmd
}

// newMeetingListCommand creates the 'meeting list' subcommand.
func newMeetingListCommand(deps *MeetingCommandDeps) *cobra.Command {
	var (
		page         int
		size         int
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		Long: `List meetings, most recent first, one page at a time.

Pages are numbered from 0. The page size defaults to the page_size setting.

Examples:
  recall meeting list
  recall meeting list --page 1 --size 50
  recall meeting list -o json`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingList(cmd.Context(), cmd.OutOrStdout(), deps, page, size, outputFormat)
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page number (0-based)")
	cmd.Flags().IntVar(&size, "size", 0, "Page size (default from config)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runMeetingList(ctx context.Context, out io.Writer, deps *MeetingCommandDeps, page, size int, outputFlag string) error {
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
	if size > config.MaxPageSize {
		return fmt.Errorf("invalid page size %d: must be at most %d", size, config.MaxPageSize)
	}

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	resp, err := c.ListMeetings(reqCtx, page, size)
	if err != nil {
		return reportFailure(err, msgLoadMeetingsFailed)
	}

	if ok, err := writeStructured(out, format, resp); ok {
		return err
	}
	return outputMeetingListText(out, resp)
}

// outputMeetingListText renders one row per meeting, each with its detail command.
func outputMeetingListText(out io.Writer, resp *client.PageResponse[client.Meeting]) error {
	if len(resp.Content) == 0 {
		if resp.TotalElements > 0 {
			fmt.Fprintf(out, "No meetings on page %d (%d pages).\n", resp.Number, resp.TotalPages)
			return nil
		}
		fmt.Fprintln(out, "No meetings yet")
		fmt.Fprintln(out, "Upload your first transcript: recall meeting upload <file.txt>")
		return nil
	}

	fmt.Fprintf(out, "Meetings (page %d of %d, %d total):\n\n", resp.Number+1, max(resp.TotalPages, 1), resp.TotalElements)
	fmt.Fprintf(out, "  %-6s %-36s %-16s %-10s %-7s %s\n", "ID", "MEETING", "DATE", "STATUS", "ACTIONS", "VIEW")
	fmt.Fprintf(out, "  %-6s %-36s %-16s %-10s %-7s %s\n", "--", "-------", "----", "------", "-------", "----")

	for i := range resp.Content {
		m := &resp.Content[i]
		fmt.Fprintf(out, "  %-6d %-36s %-16s %-10s %-7d recall meeting show %d\n",
			m.ID,
			truncate(m.Title(), 36),
			formatDate(m.MeetingDate),
			m.ProcessingStatus,
			len(m.ActionItems),
			m.ID,
		)
	}

	if resp.Number+1 < resp.TotalPages {
		fmt.Fprintf(out, "\nNext page: recall meeting list --page %d\n", resp.Number+1)
	}
	return nil
}

// newMeetingShowCommand creates the 'meeting show' subcommand.
func newMeetingShowCommand(deps *MeetingCommandDeps) *cobra.Command {
	var (
		showTranscript bool
		outputFormat   string
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a meeting's summary, participants and action items",
		Long: `Show the full analysis of a meeting: participants, summary with key points
and decisions, and action items. The transcript is shown with --transcript.

Examples:
  recall meeting show 42
  recall meeting show 42 --transcript
  recall meeting show 42 -o yaml`,
		Aliases: []string{"get"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("meeting", args[0])
			if err != nil {
				return err
			}
			return runMeetingShow(cmd.Context(), cmd.OutOrStdout(), deps, id, showTranscript, outputFormat)
		},
	}

	cmd.Flags().BoolVarP(&showTranscript, "transcript", "t", false, "Include the transcript text")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runMeetingShow(ctx context.Context, out io.Writer, deps *MeetingCommandDeps, id int64, showTranscript bool, outputFlag string) error {
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

	meeting, err := c.GetMeeting(reqCtx, id)
	if err != nil {
		return reportFailure(err, msgLoadMeetingFailed)
	}

	if !showTranscript && format != config.OutputFormatText {
		meeting.TranscriptContent = ""
	}
	if ok, err := writeStructured(out, format, meeting); ok {
		return err
	}
	outputMeetingDetailText(out, meeting, showTranscript, deps.now())
	return nil
}

func (d *MeetingCommandDeps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// outputMeetingDetailText renders a meeting for the terminal.
func outputMeetingDetailText(out io.Writer, m *client.Meeting, showTranscript bool, now time.Time) {
	fmt.Fprintf(out, "%s\n", m.Title())
	fmt.Fprintf(out, "  ID:        %d\n", m.ID)
	fmt.Fprintf(out, "  Date:      %s\n", formatDate(m.MeetingDate))
	fmt.Fprintf(out, "  File:      %s\n", valueOrDefault(m.OriginalFilename, "-"))
	fmt.Fprintf(out, "  Status:    %s\n", m.ProcessingStatus)
	fmt.Fprintf(out, "  Uploaded:  %s\n", formatDate(m.CreatedAt))

	if m.ProcessingError != "" {
		fmt.Fprintf(out, "\nProcessing error:\n  %s\n", m.ProcessingError)
	}

	if len(m.Participants) > 0 {
		fmt.Fprintf(out, "\nParticipants (%d):\n", len(m.Participants))
		for _, p := range m.Participants {
			if p.Role != "" {
				fmt.Fprintf(out, "  - %s (%s)\n", p.Name, p.Role)
			} else {
				fmt.Fprintf(out, "  - %s\n", p.Name)
			}
		}
	}

	if s := m.Summary; s != nil {
		fmt.Fprintln(out, "\nSummary:")
		var tags []string
		if s.Sentiment != "" {
			tags = append(tags, "Sentiment: "+s.Sentiment)
		}
		if s.Tone != "" {
			tags = append(tags, "Tone: "+s.Tone)
		}
		if len(tags) > 0 {
			fmt.Fprintf(out, "  %s\n", strings.Join(tags, "   "))
		}
		if s.SummaryText != "" {
			fmt.Fprintf(out, "  %s\n", s.SummaryText)
		}
		writeNumbered(out, "Key Points", s.KeyPoints)
		writeNumbered(out, "Decisions", s.Decisions)
	}

	if len(m.ActionItems) > 0 {
		fmt.Fprintf(out, "\nAction Items (%d):\n", len(m.ActionItems))
		for _, a := range m.ActionItems {
			fmt.Fprintf(out, "  [%s] %s\n", humanStatus(a.Status), a.Description)
			var meta []string
			if a.Assignee != "" {
				meta = append(meta, "Assignee: "+a.Assignee)
			}
			if a.DueDate != "" {
				meta = append(meta, "Due: "+formatDue(a.DueDate, a.Status, now))
			}
			if a.Priority != "" {
				meta = append(meta, a.Priority+" priority")
			}
			if len(meta) > 0 {
				fmt.Fprintf(out, "      %s\n", strings.Join(meta, "  "))
			}
		}
	}

	if showTranscript {
		fmt.Fprintln(out, "\nTranscript:")
		if m.TranscriptContent == "" {
			fmt.Fprintln(out, "  (empty)")
		} else {
			fmt.Fprintln(out, m.TranscriptContent)
		}
	} else if m.TranscriptContent != "" {
		fmt.Fprintf(out, "\nTranscript hidden. Show it with: recall meeting show %d --transcript\n", m.ID)
	}
}

// writeNumbered prints items in their original order under a heading.
func writeNumbered(out io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n  %s:\n", heading)
	for i, item := range items {
		fmt.Fprintf(out, "    %d. %s\n", i+1, item)
	}
}

// newMeetingStatusCommand creates the 'meeting status' subcommand.
func newMeetingStatusCommand(deps *MeetingCommandDeps) *cobra.Command {
	var (
		wait         bool
		waitTimeout  time.Duration
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show a meeting's processing status",
		Long: `Show where a meeting is in the processing lifecycle:
PENDING, PROCESSING, COMPLETED or FAILED.

With --wait, poll until processing finishes.

Examples:
  recall meeting status 42
  recall meeting status 42 --wait --wait-timeout 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("meeting", args[0])
			if err != nil {
				return err
			}
			return runMeetingStatus(cmd.Context(), cmd.OutOrStdout(), deps, id, wait, waitTimeout, outputFormat)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until processing completes or fails")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", client.DefaultWaitTimeout, "Maximum time to wait")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runMeetingStatus(ctx context.Context, out io.Writer, deps *MeetingCommandDeps, id int64, wait bool, waitTimeout time.Duration, outputFlag string) error {
	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	format, err := resolveOutputFormat(cfg, outputFlag)
	if err != nil {
		return err
	}

	var status *client.ProcessingStatus
	if wait {
		status, err = waitForMeeting(ctx, out, c, id, waitTimeout, format == config.OutputFormatText)
	} else {
		reqCtx, cancel := requestContext(ctx, cfg)
		defer cancel()
		status, err = c.GetProcessingStatus(reqCtx, id)
	}
	if err != nil {
		return reportFailure(err, msgLoadMeetingFailed)
	}

	if ok, err := writeStructured(out, format, status); ok {
		return err
	}
	outputProcessingStatusText(out, status)
	return nil
}

// waitForMeeting polls until processing finishes, printing status changes
// when progress is true.
func waitForMeeting(ctx context.Context, out io.Writer, c *client.Client, id int64, timeout time.Duration, progress bool) (*client.ProcessingStatus, error) {
	var last client.MeetingStatus
	return c.WaitForProcessing(ctx, id, client.WaitOptions{
		Timeout: timeout,
		OnPoll: func(s *client.ProcessingStatus) {
			if !progress || s.Status == last {
				return
			}
			last = s.Status
			if s.Progress != nil {
				fmt.Fprintf(out, "  meeting %d: %s (%d%%)\n", id, s.Status, *s.Progress)
			} else {
				fmt.Fprintf(out, "  meeting %d: %s\n", id, s.Status)
			}
		},
	})
}

func outputProcessingStatusText(out io.Writer, s *client.ProcessingStatus) {
	fmt.Fprintf(out, "Meeting %d: %s\n", s.MeetingID, s.Status)
	if s.Progress != nil {
		fmt.Fprintf(out, "  Progress: %d%%\n", *s.Progress)
	}
	if s.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", s.Error)
	}
	if s.Status == client.StatusCompleted {
		fmt.Fprintf(out, "  View:     recall meeting show %d\n", s.MeetingID)
	}
}

// newMeetingDeleteCommand creates the 'meeting delete' subcommand.
func newMeetingDeleteCommand(deps *MeetingCommandDeps) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a meeting and everything derived from it",
		Long: `Delete a meeting together with its summary, participants and action items.

Asks for confirmation unless --yes is given.

Examples:
  recall meeting delete 42
  recall meeting delete 42 --yes`,
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("meeting", args[0])
			if err != nil {
				return err
			}
			return runMeetingDelete(cmd.Context(), cmd.OutOrStdout(), deps, id, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runMeetingDelete(ctx context.Context, out io.Writer, deps *MeetingCommandDeps, id int64, yes bool) error {
	cfg, c, err := deps.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	if !yes {
		ok, err := deps.Confirm(fmt.Sprintf("Delete meeting %d and all its analysis?", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	reqCtx, cancel := requestContext(ctx, cfg)
	defer cancel()

	if err := c.DeleteMeeting(reqCtx, id); err != nil {
		return reportFailure(err, "Failed to delete meeting")
	}
	fmt.Fprintf(out, "Deleted meeting %d.\n", id)
	return nil
}
