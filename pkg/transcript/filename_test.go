package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExtension(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"2026-01-11_1400_Standup_Platform.txt", false},
		{"notes.txt", false},
		{"/tmp/dir/meeting.txt", false},
		{"notes.TXT", true},
		{"notes.md", true},
		{"notes.txt.bak", true},
		{"txt", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExtension(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotTxt)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFilename_Valid(t *testing.T) {
	meta, err := ParseFilename("2026-01-11_1400_Standup_Platform.txt")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 1, 11, 14, 0, 0, 0, time.UTC), meta.MeetingDate)
	assert.Equal(t, "Standup", meta.MeetingType)
	assert.Equal(t, "Platform", meta.SeriesName)
}

func TestParseFilename_UsesBaseName(t *testing.T) {
	meta, err := ParseFilename("/home/me/transcripts/2025-12-01_0930_OneOnOne_AlexSmith.txt")
	require.NoError(t, err)

	assert.Equal(t, "OneOnOne", meta.MeetingType)
	assert.Equal(t, "AlexSmith", meta.SeriesName)
	assert.Equal(t, 9, meta.MeetingDate.Hour())
	assert.Equal(t, 30, meta.MeetingDate.Minute())
}

func TestParseFilename_UnderscoreInSeries(t *testing.T) {
	// The type group is greedy, so an extra underscore lands in the type and fails the type check.
	_, err := ParseFilename("2025-12-01_0930_OneOnOne_Alex_Smith.txt")
	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.Contains(t, err.Error(), "OneOnOne_Alex")
}

func TestParseFilename_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"no convention", "notes.txt"},
		{"missing series", "2026-01-11_1400_Standup.txt"},
		{"unknown type", "2026-01-11_1400_Brainstorm_Team.txt"},
		{"bad month", "2026-13-11_1400_Standup_Team.txt"},
		{"bad time", "2026-01-11_2599_Standup_Team.txt"},
		{"wrong extension", "2026-01-11_1400_Standup_Team.md"},
		{"hyphen in series", "2026-01-11_1400_Standup_Team-A.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilename(tt.file)
			assert.ErrorIs(t, err, ErrInvalidFilename)
		})
	}
}

func TestParseFilename_AllMeetingTypes(t *testing.T) {
	for _, mt := range MeetingTypes {
		t.Run(mt, func(t *testing.T) {
			meta, err := ParseFilename("2026-02-03_0800_" + mt + "_Series.txt")
			require.NoError(t, err)
			assert.Equal(t, mt, meta.MeetingType)
		})
	}
}

func TestIsValidMeetingType(t *testing.T) {
	assert.True(t, IsValidMeetingType("Retro"))
	assert.False(t, IsValidMeetingType("retro"))
	assert.False(t, IsValidMeetingType(""))
}
