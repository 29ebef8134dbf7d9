package transcript

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches transcript line: 0:11 : Speaker Name : Text content
// or: 12:45 : Speaker Name (pronouns) : Text content
var lineRegex = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)

// Preview summarises a transcript without uploading it.
type Preview struct {
	Lines    int           `json:"lines" yaml:"lines"`
	Segments int           `json:"segments" yaml:"segments"`
	Speakers []string      `json:"speakers" yaml:"speakers"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Scan reads "M:SS : Speaker : text" lines. Lines in other shapes count toward
// Lines but not Segments.
func Scan(content string) *Preview {
	p := &Preview{Speakers: make([]string, 0)}
	seen := make(map[string]bool)
	var last int

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p.Lines++

		matches := lineRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		p.Segments++

		minutes, _ := strconv.Atoi(matches[1])
		seconds, _ := strconv.Atoi(matches[2])
		if ts := minutes*60 + seconds; ts > last {
			last = ts
		}

		speaker := strings.TrimSpace(matches[3])
		if !seen[speaker] {
			seen[speaker] = true
			p.Speakers = append(p.Speakers, speaker)
		}
	}

	p.Duration = time.Duration(last) * time.Second
	return p
}

// PreviewSpeakers returns the distinct speakers in order of first appearance.
func PreviewSpeakers(content string) []string {
	return Scan(content).Speakers
}
