package approval

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// LineChanges represents the number of lines added and removed in a modification.
type LineChanges struct {
	LinesAdded   int
	LinesRemoved int
}

// CalculateLineChanges computes the lines added and removed when
// transforming oldContent into newContent.
func CalculateLineChanges(oldContent, newContent string) LineChanges {
	matcher := difflib.NewMatcher(splitLines(oldContent), splitLines(newContent))

	var changes LineChanges
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			changes.LinesRemoved += op.I2 - op.I1
			changes.LinesAdded += op.J2 - op.J1
		case 'd':
			changes.LinesRemoved += op.I2 - op.I1
		case 'i':
			changes.LinesAdded += op.J2 - op.J1
		}
	}
	return changes
}

// WritePreview renders a unified diff of a pending file write. exists tells
// whether the file is already on disk; new files diff against /dev/null.
func WritePreview(path, oldContent string, exists bool, newContent string) string {
	fromFile := "a/" + path
	if !exists {
		fromFile = "/dev/null"
		oldContent = ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(normalizeNewlines(oldContent)),
		B:        difflib.SplitLines(normalizeNewlines(newContent)),
		FromFile: fromFile,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff unavailable: %v)", err)
	}

	changes := CalculateLineChanges(oldContent, newContent)
	summary := fmt.Sprintf("+%d -%d lines", changes.LinesAdded, changes.LinesRemoved)
	if text == "" {
		return summary + " (content unchanged)"
	}
	return summary + "\n" + text
}

// WriteQuestion is the consent question for a file write.
func WriteQuestion(path string) string {
	return fmt.Sprintf("Allow the assistant to write to the file '%s'?", path)
}

// TerminalQuestion is the consent question for a terminal command.
func TerminalQuestion(line string) string {
	return fmt.Sprintf("Allow the assistant to execute the following command in the terminal?\n\nCommand: %s", line)
}

// splitLines splits content into lines, handling different line ending styles.
// Empty content returns an empty slice (not a slice with one empty string).
func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}

	lines := strings.Split(normalizeNewlines(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func normalizeNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}
