package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcerrors "github.com/recallcontext/recall-cli/pkg/errors"
)

const meetingJSON = `{
  "id": 42,
  "meetingDate": "2026-01-11T14:00:00",
  "meetingType": "Standup",
  "seriesName": "Platform",
  "originalFilename": "2026-01-11_1400_Standup_Platform.txt",
  "processingStatus": "COMPLETED",
  "createdAt": "2026-01-11T14:05:12.123456",
  "summary": {
    "summaryText": "Release is on track.",
    "keyPoints": ["third", "first", "second"],
    "decisions": ["ship friday", "freeze thursday"],
    "sentiment": "positive",
    "tone": "focused"
  },
  "participants": [{"id": 1, "name": "Alex", "role": "Lead"}],
  "actionItems": [
    {"id": 9, "description": "Tag release", "assignee": "Alex", "dueDate": "2026-01-16", "status": "NOT_STARTED", "priority": "high"}
  ],
  "transcriptContent": "0:01 : Alex : morning"
}`

func TestUploadTranscript(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody UploadRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(meetingJSON))
	}, nil)

	meeting, err := c.UploadTranscript(context.Background(), &UploadRequest{
		Filename: "2026-01-11_1400_Standup_Platform.txt",
		Content:  "0:01 : Alex : morning",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/meetings", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "2026-01-11_1400_Standup_Platform.txt", gotBody.Filename)
	assert.Equal(t, "0:01 : Alex : morning", gotBody.Content)

	assert.Equal(t, int64(42), meeting.ID)
	assert.Equal(t, StatusCompleted, meeting.ProcessingStatus)
	assert.Equal(t, "Standup: Platform", meeting.Title())
}

func TestUploadTranscript_ValidationSendsNothing(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	tests := []struct {
		name    string
		req     *UploadRequest
		wantMsg string
	}{
		{"missing filename", &UploadRequest{Content: "x"}, "filename is required"},
		{"missing content", &UploadRequest{Filename: "a.txt"}, "content is required"},
		{"nil request", nil, "filename is required"},
		{"content too large", &UploadRequest{Filename: "a.txt", Content: strings.Repeat("a", MaxContentLength+1)}, "content must not exceed 5000000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.UploadTranscript(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, rcerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUploadTranscript_ContentAtLimitIsAccepted(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, Meeting{ID: 1})
	}, nil)

	_, err := c.UploadTranscript(context.Background(), &UploadRequest{
		Filename: "a.txt",
		Content:  strings.Repeat("a", MaxContentLength),
	})
	assert.NoError(t, err)
}

func TestListMeetings(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		size      int
		wantQuery string
	}{
		{"explicit", 2, 50, "page=2&size=50"},
		{"defaults for out of range", -1, 0, "page=0&size=20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"content":[` + meetingJSON + `],"totalElements":21,"totalPages":2,"size":20,"number":0}`))
			}, nil)

			page, err := c.ListMeetings(context.Background(), tt.page, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, gotQuery)
			require.Len(t, page.Content, 1)
			assert.Equal(t, int64(21), page.TotalElements)
			assert.Equal(t, 2, page.TotalPages)
		})
	}
}

func TestGetMeeting_PreservesOrdering(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/meetings/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(meetingJSON))
	}, nil)

	meeting, err := c.GetMeeting(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, meeting.Summary)
	assert.Equal(t, []string{"third", "first", "second"}, meeting.Summary.KeyPoints)
	assert.Equal(t, []string{"ship friday", "freeze thursday"}, meeting.Summary.Decisions)
	assert.Equal(t, "2026-01-11T14:00:00", meeting.MeetingDate.String())
	assert.Equal(t, "2026-01-11T14:05:12", meeting.CreatedAt.String())
	require.Len(t, meeting.ActionItems, 1)
	assert.Equal(t, ActionNotStarted, meeting.ActionItems[0].Status)
	assert.Equal(t, "0:01 : Alex : morning", meeting.TranscriptContent)
}

func TestGetMeeting_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Meeting not found with id: 99",
			Status:  404,
		})
	}, nil)

	_, err := c.GetMeeting(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, rcerrors.IsNotFound(err))
	assert.Equal(t, "Meeting not found with id: 99", MessageOr(err, "Failed to load meeting"))
}

func TestGetProcessingStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/meetings/5/processing-status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"meetingId":5,"status":"PROCESSING","progress":40}`))
	}, nil)

	status, err := c.GetProcessingStatus(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), status.MeetingID)
	assert.Equal(t, StatusProcessing, status.Status)
	require.NotNil(t, status.Progress)
	assert.Equal(t, 40, *status.Progress)
}

func TestDeleteMeeting(t *testing.T) {
	var gotMethod string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}, nil)

	require.NoError(t, c.DeleteMeeting(context.Background(), 3))
	assert.Equal(t, http.MethodDelete, gotMethod)
}
