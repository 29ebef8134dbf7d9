package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallcontext/recall-cli/client"
)

func newTestMeetingDeps(fb *fakeBackend) *MeetingCommandDeps {
	deps := DefaultMeetingDeps()
	deps.LoadConfig = fb.loadConfig()
	deps.InitClient = testInitClient
	deps.Confirm = confirmWith(true, nil)
	deps.Now = func() time.Time { return time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC) }
	return deps
}

func sampleMeeting(id int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"meetingDate":      "2026-01-11T14:00:00",
		"meetingType":      "Standup",
		"seriesName":       fmt.Sprintf("Team%d", id),
		"originalFilename": "2026-01-11_1400_Standup_Platform.txt",
		"processingStatus": "COMPLETED",
		"createdAt":        "2026-01-11T14:05:00",
		"actionItems": []map[string]interface{}{
			{"id": id * 10, "description": "Tag release", "status": "NOT_STARTED"},
		},
	}
}

func meetingPage(meetings ...map[string]interface{}) map[string]interface{} {
	if meetings == nil {
		meetings = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"content":       meetings,
		"totalElements": len(meetings),
		"totalPages":    1,
		"size":          20,
		"number":        0,
	}
}

func TestMeetingList_RendersOneRowPerMeeting(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meetingPage(sampleMeeting(3), sampleMeeting(2), sampleMeeting(1)))
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list")
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, "recall meeting show "))
	for _, id := range []int{1, 2, 3} {
		assert.Contains(t, out, fmt.Sprintf("recall meeting show %d\n", id))
		assert.Contains(t, out, fmt.Sprintf("Standup: Team%d", id))
	}
	assert.NotContains(t, out, "No meetings yet")

	reqs := fb.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/v1/meetings", reqs[0].Path)
	assert.Contains(t, reqs[0].Query, "page=0")
	assert.Contains(t, reqs[0].Query, "size=20")
}

func TestMeetingList_PreservesBackendOrder(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meetingPage(sampleMeeting(7), sampleMeeting(9), sampleMeeting(8)))
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list")
	require.NoError(t, err)

	i7 := strings.Index(out, "recall meeting show 7")
	i9 := strings.Index(out, "recall meeting show 9")
	i8 := strings.Index(out, "recall meeting show 8")
	assert.True(t, i7 < i9 && i9 < i8, "rows out of order:\n%s", out)
}

func TestMeetingList_EmptyState(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meetingPage())
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list")
	require.NoError(t, err)

	assert.Contains(t, out, "No meetings yet")
	assert.Contains(t, out, "recall meeting upload <file.txt>")
	assert.NotContains(t, out, "recall meeting show")
}

func TestMeetingList_PageFlags(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meetingPage())
	})

	_, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list", "--page", "2", "--size", "5")
	require.NoError(t, err)

	reqs := fb.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Query, "page=2")
	assert.Contains(t, reqs[0].Query, "size=5")
}

func TestMeetingList_JSONOutput(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meetingPage(sampleMeeting(1), sampleMeeting(2)))
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list", "-o", "json")
	require.NoError(t, err)

	var page client.PageResponse[client.Meeting]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Content, 2)
	assert.Equal(t, int64(1), page.Content[0].ID)
	assert.Equal(t, "2026-01-11T14:00:00", page.Content[0].MeetingDate.String())
}

func TestMeetingList_ServerMessageOrFallback(t *testing.T) {
	t.Run("server message", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusInternalServerError, map[string]interface{}{
				"code": "INTERNAL_ERROR", "message": "Database is down", "status": 500,
			})
		})
		_, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "Database is down"), err.Error())
	})

	t.Run("fallback", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		})
		_, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "list")
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "Failed to load meetings"), err.Error())
		assert.Contains(t, err.Error(), "Bad Gateway")
	})
}

func TestMeetingShow_SummaryOrderAndSections(t *testing.T) {
	meeting := sampleMeeting(42)
	meeting["participants"] = []map[string]interface{}{
		{"id": 1, "name": "Alex", "role": "Lead"},
		{"id": 2, "name": "Sam"},
	}
	meeting["summary"] = map[string]interface{}{
		"summaryText": "Release planning.",
		"keyPoints":   []string{"third", "first", "second"},
		"decisions":   []string{"ship friday", "freeze thursday"},
		"sentiment":   "positive",
		"tone":        "focused",
	}
	meeting["actionItems"] = []map[string]interface{}{
		{"id": 5, "description": "Tag release", "assignee": "Alex", "dueDate": "2026-01-16", "status": "IN_PROGRESS", "priority": "high"},
	}
	meeting["transcriptContent"] = "0:01 : Alex : hello"

	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/meetings/42", r.URL.Path)
		respondJSON(t, w, http.StatusOK, meeting)
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "42")
	require.NoError(t, err)

	assert.Contains(t, out, "Standup: Team42")
	assert.Contains(t, out, "Alex (Lead)")
	assert.Contains(t, out, "Sentiment: positive")
	assert.Contains(t, out, "Tone: focused")
	assert.Contains(t, out, "1. third\n    2. first\n    3. second")
	assert.Contains(t, out, "1. ship friday\n    2. freeze thursday")
	assert.Contains(t, out, "[in progress] Tag release")
	assert.Contains(t, out, "Assignee: Alex")
	assert.Contains(t, out, "Due: 2026-01-16 (overdue)")
	assert.Contains(t, out, "high priority")
	assert.NotContains(t, out, "0:01 : Alex : hello")
	assert.Contains(t, out, "recall meeting show 42 --transcript")

	out, _, err = executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "42", "--transcript")
	require.NoError(t, err)
	assert.Contains(t, out, "0:01 : Alex : hello")
}

func TestMeetingShow_JSONKeepsOrder(t *testing.T) {
	meeting := sampleMeeting(42)
	meeting["summary"] = map[string]interface{}{
		"summaryText": "s",
		"keyPoints":   []string{"c", "a", "b"},
		"decisions":   []string{"z", "y"},
	}
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meeting)
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "42", "-o", "json")
	require.NoError(t, err)

	var got client.Meeting
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Summary)
	assert.Equal(t, []string{"c", "a", "b"}, got.Summary.KeyPoints)
	assert.Equal(t, []string{"z", "y"}, got.Summary.Decisions)
}

func TestMeetingShow_ProcessingError(t *testing.T) {
	meeting := sampleMeeting(3)
	meeting["processingStatus"] = "FAILED"
	meeting["processingError"] = "AI service unavailable"
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusOK, meeting)
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Processing error:\n  AI service unavailable")
}

func TestMeetingShow_NotFound(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, http.StatusNotFound, map[string]interface{}{
			"code": "NOT_FOUND", "message": "Meeting not found with id: 9", "status": 404,
		})
	})

	_, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Meeting not found with id: 9")
}

func TestMeetingShow_InvalidID(t *testing.T) {
	fb := newFakeBackend(t, nil)

	_, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "show", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid meeting id")
	assert.Empty(t, fb.Requests())
}

func TestMeetingStatus(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/meetings/5/processing-status", r.URL.Path)
		respondJSON(t, w, http.StatusOK, map[string]interface{}{
			"meetingId": 5, "status": "PROCESSING", "progress": 40,
		})
	})

	out, _, err := executeCommand(t, NewMeetingCommand(newTestMeetingDeps(fb)), "status", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Meeting 5: PROCESSING")
	assert.Contains(t, out, "Progress: 40%")
}

func TestMeetingDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		var asked string
		deps := newTestMeetingDeps(fb)
		deps.Confirm = confirmWith(true, &asked)

		out, _, err := executeCommand(t, NewMeetingCommand(deps), "delete", "4")
		require.NoError(t, err)
		assert.Contains(t, asked, "Delete meeting 4")
		assert.Contains(t, out, "Deleted meeting 4.")

		reqs := fb.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodDelete, reqs[0].Method)
		assert.Equal(t, "/api/v1/meetings/4", reqs[0].Path)
	})

	t.Run("declined sends nothing", func(t *testing.T) {
		fb := newFakeBackend(t, nil)
		deps := newTestMeetingDeps(fb)
		deps.Confirm = confirmWith(false, nil)

		out, _, err := executeCommand(t, NewMeetingCommand(deps), "delete", "4")
		require.NoError(t, err)
		assert.Contains(t, out, "Aborted.")
		assert.Empty(t, fb.Requests())
	})

	t.Run("yes skips prompt", func(t *testing.T) {
		fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		deps := newTestMeetingDeps(fb)
		deps.Confirm = func(string) (bool, error) {
			t.Fatal("confirm should not be called with --yes")
			return false, nil
		}

		_, _, err := executeCommand(t, NewMeetingCommand(deps), "delete", "4", "--yes")
		require.NoError(t, err)
		assert.Len(t, fb.Requests(), 1)
	})
}
