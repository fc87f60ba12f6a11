// Package reply recovers structured data from unstructured LLM reply
// text: embedded file blocks and an optional commit summary. Both scans
// are pure text functions.
package reply

import (
	"strings"

	"repochat/internal/models"
)

const (
	startMarkerPrefix = "===== Start of file: "
	endMarkerPrefix   = "===== End of file: "
	markerSuffix      = " ====="
)

// StartMarker returns the delimiter line opening a file block for name.
func StartMarker(name string) string {
	return startMarkerPrefix + name + markerSuffix
}

// EndMarker returns the delimiter line closing a file block for name.
func EndMarker(name string) string {
	return endMarkerPrefix + name + markerSuffix
}

// markerName extracts the filename from a marker line, or "" if the
// line is not a marker of the given kind.
func markerName(line, prefix string) string {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, markerSuffix) {
		return ""
	}
	return line[len(prefix) : len(line)-len(markerSuffix)]
}

// ExtractFiles scans text for non-overlapping file blocks delimited by
// start/end marker lines. The filename captured by the start marker
// must reappear verbatim in the end marker for a block to count; a
// start with no matching end yields no match. Content between the
// markers is captured as-is, embedded newlines included, not trimmed.
// Zero matches is a valid result.
func ExtractFiles(text string) []models.ExtractedFile {
	var files []models.ExtractedFile

	lines := strings.Split(text, "\n")
	seeking := ""    // filename whose end marker we are looking for
	var body []string

	for _, line := range lines {
		if seeking == "" {
			if name := markerName(line, startMarkerPrefix); name != "" {
				seeking = name
				body = body[:0]
			}
			continue
		}
		if markerName(line, endMarkerPrefix) == seeking {
			files = append(files, models.ExtractedFile{
				Filename: seeking,
				Content:  strings.Join(body, "\n"),
			})
			seeking = ""
			continue
		}
		body = append(body, line)
	}
	return files
}

// headerKind classifies a line as a "Commit Summary" or "Files" section
// header. Markdown heading/bold markup and the A./B. ordinals the agent
// instructions ask for are tolerated.
func headerKind(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#")
	s = strings.Trim(s, "*")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")
	for _, ord := range []string{"A.", "B."} {
		if strings.HasPrefix(s, ord) {
			s = strings.TrimSpace(strings.TrimPrefix(s, ord))
			break
		}
	}
	switch {
	case strings.EqualFold(s, "Commit Summary"):
		return "summary"
	case strings.EqualFold(s, "Files"):
		return "files"
	}
	return ""
}

// ExtractCommitSummary looks for a "Commit Summary" section header and
// returns the trimmed text between it and the following "Files" header.
// The boolean is false when no summary section is present; absence is
// not an error.
func ExtractCommitSummary(text string) (string, bool) {
	var body []string
	inSummary := false

	for _, line := range strings.Split(text, "\n") {
		switch headerKind(line) {
		case "summary":
			inSummary = true
			body = body[:0]
		case "files":
			if inSummary {
				return strings.TrimSpace(strings.Join(body, "\n")), true
			}
		default:
			if inSummary {
				body = append(body, line)
			}
		}
	}
	if inSummary {
		return strings.TrimSpace(strings.Join(body, "\n")), true
	}
	return "", false
}
