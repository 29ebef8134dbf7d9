package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MeetingStatus is the backend lifecycle stage of a meeting's AI analysis.
type MeetingStatus string

const (
	StatusPending    MeetingStatus = "PENDING"
	StatusProcessing MeetingStatus = "PROCESSING"
	StatusCompleted  MeetingStatus = "COMPLETED"
	StatusFailed     MeetingStatus = "FAILED"
)

// IsTerminal reports whether processing has finished, successfully or not.
func (s MeetingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ActionStatus is the progress state of an action item.
type ActionStatus string

const (
	ActionNotStarted ActionStatus = "NOT_STARTED"
	ActionInProgress ActionStatus = "IN_PROGRESS"
	ActionCompleted  ActionStatus = "COMPLETED"
	ActionBlocked    ActionStatus = "BLOCKED"
)

// ActionStatuses lists the accepted action statuses in display order.
var ActionStatuses = []ActionStatus{ActionNotStarted, ActionInProgress, ActionCompleted, ActionBlocked}

// Priority values the backend assigns to action items.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// MaxContentLength is the largest transcript the backend accepts, in characters.
const MaxContentLength = 5_000_000

// Meeting is a processed (or processing) meeting as returned by the backend.
type Meeting struct {
	ID                int64         `json:"id" yaml:"id"`
	MeetingDate       Timestamp     `json:"meetingDate" yaml:"meetingDate"`
	MeetingType       string        `json:"meetingType" yaml:"meetingType"`
	SeriesName        string        `json:"seriesName" yaml:"seriesName"`
	OriginalFilename  string        `json:"originalFilename" yaml:"originalFilename"`
	ProcessingStatus  MeetingStatus `json:"processingStatus" yaml:"processingStatus"`
	ProcessingError   string        `json:"processingError,omitempty" yaml:"processingError,omitempty"`
	CreatedAt         Timestamp     `json:"createdAt" yaml:"createdAt"`
	Summary           *Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Participants      []Participant `json:"participants,omitempty" yaml:"participants,omitempty"`
	ActionItems       []ActionItem  `json:"actionItems,omitempty" yaml:"actionItems,omitempty"`
	TranscriptContent string        `json:"transcriptContent,omitempty" yaml:"transcriptContent,omitempty"`
}

// Title returns the "Type: Series" heading used in listings.
func (m *Meeting) Title() string {
	return fmt.Sprintf("%s: %s", m.MeetingType, m.SeriesName)
}

// Summary is the AI-derived summary of a meeting. KeyPoints and Decisions keep
// the order the backend produced.
type Summary struct {
	SummaryText string   `json:"summaryText" yaml:"summaryText"`
	KeyPoints   []string `json:"keyPoints" yaml:"keyPoints"`
	Decisions   []string `json:"decisions" yaml:"decisions"`
	Sentiment   string   `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
	Tone        string   `json:"tone,omitempty" yaml:"tone,omitempty"`
}

// Participant is a person identified in a transcript.
type Participant struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Role string `json:"role,omitempty" yaml:"role,omitempty"`
}

// ActionItem is an extracted task as embedded in a Meeting.
type ActionItem struct {
	ID          int64        `json:"id" yaml:"id"`
	Description string       `json:"description" yaml:"description"`
	Assignee    string       `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueDate     string       `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Status      ActionStatus `json:"status" yaml:"status"`
	Priority    string       `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// ActionItemDetail is the standalone action item shape served by /actions.
type ActionItemDetail struct {
	ID          int64        `json:"id" yaml:"id"`
	MeetingID   int64        `json:"meetingId" yaml:"meetingId"`
	MeetingType string       `json:"meetingType,omitempty" yaml:"meetingType,omitempty"`
	MeetingDate *Timestamp   `json:"meetingDate,omitempty" yaml:"meetingDate,omitempty"`
	Description string       `json:"description" yaml:"description"`
	Assignee    string       `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	DueDate     string       `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Status      ActionStatus `json:"status" yaml:"status"`
	Priority    string       `json:"priority,omitempty" yaml:"priority,omitempty"`
	Notes       string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	CompletedAt *Timestamp   `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	CreatedAt   *Timestamp   `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   *Timestamp   `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// ProcessingStatus is the lightweight status projection of a meeting.
type ProcessingStatus struct {
	MeetingID int64         `json:"meetingId" yaml:"meetingId"`
	Status    MeetingStatus `json:"status" yaml:"status"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Progress  *int          `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// APIKeyStatusResponse reports whether the backend holds an AI API key.
type APIKeyStatusResponse struct {
	Configured bool   `json:"configured" yaml:"configured"`
	Message    string `json:"message" yaml:"message"`
}

// APIKeyRequest carries a new AI API key to the backend.
type APIKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

// PageResponse is one page of a paginated listing. Number is zero-based.
type PageResponse[T any] struct {
	Content       []T   `json:"content" yaml:"content"`
	TotalElements int64 `json:"totalElements" yaml:"totalElements"`
	TotalPages    int   `json:"totalPages" yaml:"totalPages"`
	Size          int   `json:"size" yaml:"size"`
	Number        int   `json:"number" yaml:"number"`
}

// ErrorResponse is the backend's structured error body.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Status    int               `json:"status"`
	Timestamp string            `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// UploadRequest submits one transcript for processing.
type UploadRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required,max=5000000"`
}

// ActionUpdateRequest changes fields of an action item. Empty fields are left
// untouched by the backend.
type ActionUpdateRequest struct {
	Status   ActionStatus `json:"status,omitempty" validate:"omitempty,oneof=NOT_STARTED IN_PROGRESS COMPLETED BLOCKED"`
	Assignee string       `json:"assignee,omitempty"`
	DueDate  string       `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Priority string       `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	Notes    string       `json:"notes,omitempty"`
}

// StatusOnly reports whether the request changes nothing but the status.
func (r *ActionUpdateRequest) StatusOnly() bool {
	return r.Status != "" && r.Assignee == "" && r.DueDate == "" && r.Priority == "" && r.Notes == ""
}

// IsEmpty reports whether the request changes nothing.
func (r *ActionUpdateRequest) IsEmpty() bool {
	return *r == ActionUpdateRequest{}
}

// localDateTimeLayout is the zone-less form the backend serialises dates in.
const localDateTimeLayout = "2006-01-02T15:04:05"

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp is a backend date-time without a zone. It is read as UTC wall time.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses any of the date-time forms the backend emits.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// UnmarshalJSON accepts a string timestamp or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON writes the zone-less form, or null for the zero time.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// MarshalYAML writes the zone-less form.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.String(), nil
}

// String returns the zone-less form.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(localDateTimeLayout)
}
