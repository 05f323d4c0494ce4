package normalize

import (
	"regexp"
	"strings"
)

var blockCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// RemoveComments strips line comments, then block comments, and trims the
// result. Block comments are matched non-greedily across lines.
func RemoveComments(code string) string {
	code = stripLineComments(code)
	code = blockCommentRe.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

// stripLineComments cuts each line at the first "//" that does not directly
// follow a colon, so tokens like "http://" survive.
func stripLineComments(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = line[:lineCommentStart(line)]
	}
	return strings.Join(lines, "\n")
}

// lineCommentStart returns the index of the comment marker, or len(line).
func lineCommentStart(line string) int {
	from := 0
	for {
		j := strings.Index(line[from:], "//")
		if j < 0 {
			return len(line)
		}
		at := from + j
		if at == 0 || line[at-1] != ':' {
			return at
		}
		from = at + 1
	}
}
