package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/recallcontext/recall-cli/client"
	"github.com/recallcontext/recall-cli/config"
	"github.com/recallcontext/recall-cli/pkg/logging"
	"github.com/recallcontext/recall-cli/pkg/transcript"
)

const (
	msgUploadFailed = "Failed to upload transcript"
	msgNotTxt       = "Please select a .txt file"
)

// uploadResult is the outcome of one file in an upload run.
type uploadResult struct {
	File     string                   `json:"file" yaml:"file"`
	Meeting  *client.Meeting          `json:"meeting,omitempty" yaml:"meeting,omitempty"`
	Status   *client.ProcessingStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Preview  *uploadPreview           `json:"preview,omitempty" yaml:"preview,omitempty"`
	Error    string                   `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// uploadPreview is what --dry-run reports for a file.
type uploadPreview struct {
	Size        int64     `json:"size" yaml:"size"`
	MeetingDate time.Time `json:"meetingDate,omitempty" yaml:"meeting_date,omitempty"`
	MeetingType string    `json:"meetingType,omitempty" yaml:"meeting_type,omitempty"`
	SeriesName  string    `json:"seriesName,omitempty" yaml:"series_name,omitempty"`
	Lines       int       `json:"lines" yaml:"lines"`
	Speakers    []string  `json:"speakers" yaml:"speakers"`
}

type uploadOptions struct {
	wait         bool
	waitTimeout  time.Duration
	dryRun       bool
	outputFormat string
}

// newMeetingUploadCommand creates the 'meeting upload' subcommand.
func newMeetingUploadCommand(deps *MeetingCommandDeps) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <file.txt|dir>...",
		Short: "Upload meeting transcripts for analysis",
		Long: `Upload one or more plain-text transcripts. Directories are expanded to the
.txt files directly inside them and uploaded in name order, one at a time.

Transcript files should be named:
  ` + transcript.FilenameLayout + `

Meeting types: OneOnOne, Standup, Programme, Retro, Governance, Leadership,
Vendor, Adhoc, Incident, Interview, Review, Dictation.

The name is checked locally and a warning is printed when it does not match;
the server has the final say. Files without the .txt extension are rejected
before anything is sent.

Examples:
  # Upload a single transcript
  recall meeting upload 2026-01-11_1400_Standup_Platform.txt

  # Upload a folder and wait for each analysis to finish
  recall meeting upload ./transcripts --wait

  # Check names and speakers without uploading
  recall meeting upload ./transcripts --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingUpload(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), deps, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.wait, "wait", "w", false, "Wait for processing to finish after each upload")
	cmd.Flags().DurationVar(&opts.waitTimeout, "wait-timeout", client.DefaultWaitTimeout, "Maximum time to wait per transcript")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Check files and preview speakers without uploading")
	cmd.Flags().StringVarP(&opts.outputFormat, "output", "o", "", "Output format: text, json, yaml")

	return cmd
}

func runMeetingUpload(ctx context.Context, out, errOut io.Writer, deps *MeetingCommandDeps, args []string, opts uploadOptions) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	deps.Config = cfg

	format, err := resolveOutputFormat(cfg, opts.outputFormat)
	if err != nil {
		return err
	}
	text := format == config.OutputFormatText

	paths, err := transcript.Expand(args)
	if err != nil {
		return fmt.Errorf("collecting transcripts: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .txt files found in %v", args)
	}

	var c *client.Client
	if !opts.dryRun {
		c, err = deps.InitClient(cfg)
		if err != nil {
			return fmt.Errorf("initializing client: %w", err)
		}
		defer c.Close()
	}

	results := make([]uploadResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		var res uploadResult
		var uerr error
		if opts.dryRun {
			res, uerr = previewTranscript(deps, path)
		} else {
			res, uerr = uploadTranscript(ctx, out, cfg, c, deps, path, opts, text)
		}
		if errors.Is(uerr, context.Canceled) {
			return uerr
		}
		if uerr != nil {
			failed++
			res.Error = uerr.Error()
		}
		results = append(results, res)

		if text {
			for _, w := range res.Warnings {
				fmt.Fprintf(errOut, "Warning: %s\n", w)
			}
			outputUploadResultText(out, &res, opts.dryRun)
		}
	}

	if !text {
		if _, err := writeStructured(out, format, results); err != nil {
			return err
		}
	}

	if failed > 0 {
		if len(paths) == 1 {
			return fmt.Errorf("upload of %s failed", results[0].File)
		}
		return fmt.Errorf("%d of %d transcripts failed", failed, len(paths))
	}
	return nil
}

// checkTranscriptName runs the local checks shared by upload and dry-run.
// A wrong extension is fatal; a name off the convention is only a warning.
func checkTranscriptName(path string) (warnings []string, err error) {
	if err := transcript.ValidateExtension(path); err != nil {
		return nil, &failure{msg: msgNotTxt, err: err}
	}
	if _, err := transcript.ParseFilename(path); err != nil {
		warnings = append(warnings, err.Error())
	}
	return warnings, nil
}

func previewTranscript(deps *MeetingCommandDeps, path string) (uploadResult, error) {
	res := uploadResult{File: path}

	warnings, err := checkTranscriptName(path)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings

	f, err := deps.ReadFile(path)
	if err != nil {
		return res, err
	}

	scan := transcript.Scan(f.Content)
	res.Preview = &uploadPreview{
		Size:     f.Size,
		Lines:    scan.Lines,
		Speakers: scan.Speakers,
	}
	if meta, err := transcript.ParseFilename(path); err == nil {
		res.Preview.MeetingDate = meta.MeetingDate
		res.Preview.MeetingType = meta.MeetingType
		res.Preview.SeriesName = meta.SeriesName
	}
	return res, nil
}

func uploadTranscript(ctx context.Context, out io.Writer, cfg *config.CLIConfig, c *client.Client, deps *MeetingCommandDeps, path string, opts uploadOptions, text bool) (uploadResult, error) {
	res := uploadResult{File: path}

	warnings, err := checkTranscriptName(path)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings

	f, err := deps.ReadFile(path)
	if err != nil {
		return res, err
	}
	if utf8.RuneCountInString(f.Content) > client.MaxContentLength {
		return res, fmt.Errorf("%s is too large (%s); the limit is %s characters",
			f.Name, humanize.Bytes(uint64(f.Size)), humanize.Comma(client.MaxContentLength))
	}

	logger.Debug("uploading transcript",
		logging.F("file", f.Name),
		logging.F("bytes", f.Size))

	reqCtx, cancel := requestContext(ctx, cfg)
	meeting, err := c.UploadTranscript(reqCtx, &client.UploadRequest{
		Filename: f.Name,
		Content:  f.Content,
	})
	cancel()
	if err != nil {
		return res, reportFailure(err, msgUploadFailed)
	}
	res.Meeting = meeting

	if !opts.wait || meeting.ProcessingStatus.IsTerminal() {
		return res, nil
	}

	status, err := waitForMeeting(ctx, out, c, meeting.ID, opts.waitTimeout, text)
	res.Status = status
	if err != nil {
		return res, reportFailure(err, "Failed to check processing status")
	}
	if status.Status == client.StatusFailed {
		return res, fmt.Errorf("processing failed: %s", valueOrDefault(status.Error, "no reason given"))
	}
	return res, nil
}

func outputUploadResultText(out io.Writer, res *uploadResult, dryRun bool) {
	if res.Error != "" {
		fmt.Fprintf(out, "✗ %s\n", res.File)
		fmt.Fprintf(out, "  %s\n", indentLines(res.Error, "  "))
		if res.Meeting != nil {
			fmt.Fprintf(out, "  View: recall meeting show %d\n", res.Meeting.ID)
		}
		return
	}

	if dryRun {
		p := res.Preview
		fmt.Fprintf(out, "✓ %s (%s, %d lines)\n", res.File, humanize.Bytes(uint64(p.Size)), p.Lines)
		if p.MeetingType != "" {
			fmt.Fprintf(out, "  Meeting:  %s: %s on %s\n", p.MeetingType, p.SeriesName, p.MeetingDate.Format("2006-01-02 15:04"))
		}
		if len(p.Speakers) > 0 {
			fmt.Fprintf(out, "  Speakers: %s\n", strings.Join(p.Speakers, ", "))
		} else {
			fmt.Fprintln(out, "  Speakers: none recognised")
		}
		return
	}

	m := res.Meeting
	status := m.ProcessingStatus
	if res.Status != nil {
		status = res.Status.Status
	}
	fmt.Fprintf(out, "✓ %s → meeting %d (%s, %s)\n", res.File, m.ID, m.Title(), status)
	fmt.Fprintf(out, "  View: recall meeting show %d\n", m.ID)
}

// indentLines indents every line after the first.
func indentLines(s, indent string) string {
	return strings.ReplaceAll(s, "\n", "\n"+indent)
}
