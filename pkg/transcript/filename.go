// Package transcript handles local transcript files before upload: the .txt
// extension check, the YYYY-MM-DD_HHmm_MeetingType_SeriesName.txt naming
// convention, BOM-aware reading, directory expansion and a speaker preview.
package transcript

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Extension is the only file extension the backend accepts.
const Extension = ".txt"

// FilenameLayout documents the naming convention.
const FilenameLayout = "YYYY-MM-DD_HHmm_MeetingType_SeriesName.txt"

var (
	// ErrNotTxt is returned for files without the .txt extension.
	ErrNotTxt = errors.New("not a .txt file")

	// ErrInvalidFilename is returned when a name does not follow FilenameLayout.
	ErrInvalidFilename = errors.New("invalid transcript filename")
)

// filenamePattern: 2026-01-11_1400_Standup_Platform.txt
var filenamePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(\d{4})_(\w+)_(\w+)\.txt$`)

// MeetingTypes lists the meeting types the backend recognises, in its order.
var MeetingTypes = []string{
	"OneOnOne", "Standup", "Programme", "Retro", "Governance", "Leadership",
	"Vendor", "Adhoc", "Incident", "Interview", "Review", "Dictation",
}

// FilenameMetadata is what the naming convention encodes.
type FilenameMetadata struct {
	MeetingDate time.Time `json:"meetingDate" yaml:"meeting_date"`
	MeetingType string    `json:"meetingType" yaml:"meeting_type"`
	SeriesName  string    `json:"seriesName" yaml:"series_name"`
}

// ValidateExtension checks the .txt suffix of a file name. The check is
// case-sensitive, so "notes.TXT" is rejected.
func ValidateExtension(name string) error {
	if !strings.HasSuffix(filepath.Base(name), Extension) {
		return fmt.Errorf("%w: %s", ErrNotTxt, filepath.Base(name))
	}
	return nil
}

// IsValidMeetingType reports whether t is one of MeetingTypes.
func IsValidMeetingType(t string) bool {
	for _, mt := range MeetingTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// ParseFilename extracts meeting date, type and series from a transcript file name.
// Only the base name is inspected.
func ParseFilename(name string) (*FilenameMetadata, error) {
	base := filepath.Base(name)

	matches := filenamePattern.FindStringSubmatch(base)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected %s)", ErrInvalidFilename, base, FilenameLayout)
	}

	meetingType := matches[3]
	if !IsValidMeetingType(meetingType) {
		return nil, fmt.Errorf("%w: unknown meeting type %q (valid: %s)",
			ErrInvalidFilename, meetingType, strings.Join(MeetingTypes, ", "))
	}

	date, err := time.Parse("2006-01-02 1504", matches[1]+" "+matches[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date/time in %s", ErrInvalidFilename, base)
	}

	return &FilenameMetadata{
		MeetingDate: date,
		MeetingType: meetingType,
		SeriesName:  matches[4],
	}, nil
}
