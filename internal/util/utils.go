package util

import (
	"bytes"
	"fmt"
	"strings"
)

// GetContextLines formats the two lines before errorLine and the line itself.
// The error line is marked and a caret points at its first visible character.
func GetContextLines(src string, errorLine int) string {
	lines := strings.Split(src, "\n")
	if errorLine < 1 || errorLine > len(lines) {
		return ""
	}

	var result bytes.Buffer

	startLine := errorLine - 2
	if startLine < 1 {
		startLine = 1
	}

	for i := startLine; i <= errorLine; i++ {
		lineContent := strings.TrimRight(lines[i-1], "\r")

		if i == errorLine {
			margin := fmt.Sprintf("  >  %3d | ", i)
			result.WriteString(fmt.Sprintf("%s%s\n", margin, lineContent))
			indent := lineContent[:len(lineContent)-len(strings.TrimLeft(lineContent, " \t"))]
			result.WriteString(fmt.Sprintf("%s^", replaceVisibleWithSpaces(margin+indent)))
		} else {
			result.WriteString(fmt.Sprintf("     %3d | %s\n", i, lineContent))
		}
	}

	return result.String()
}

// replaceVisibleWithSpaces replaces all non-whitespace characters with spaces
// while preserving tabs for correct alignment.
func replaceVisibleWithSpaces(s string) string {
	var buf bytes.Buffer
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
