package feature

import (
	"errors"
	"html"
	"regexp"
	"strings"
)

// ErrMalformedLabel indicates a node label without the "(KIND,code...)" comma.
var ErrMalformedLabel = errors.New("malformed node label")

var subscriptRe = regexp.MustCompile(`(?is)<SUB>.*?</SUB>`)

// SnippetFromLabel extracts the source line carried by a raw node label.
//
// Labels look like "(KIND,code)" or, for HTML labels, <(KIND,code)<SUB>line</SUB>>.
// The snippet is the text after the first comma with the two closing
// characters dropped, cut at the first line break. "static void" is
// rewritten to "void" so storage class does not split otherwise equal lines.
func SnippetFromLabel(label string) (string, error) {
	if strings.HasPrefix(label, "<") && strings.HasSuffix(label, ">") {
		label = subscriptRe.ReplaceAllString(label, "")
		label = html.UnescapeString(label)
	}

	comma := strings.Index(label, ",")
	if comma < 0 {
		return "", ErrMalformedLabel
	}

	start, end := comma+1, len(label)-2
	code := ""
	if end > start {
		code = label[start:end]
	}

	// Both the escaped marker and a real newline end the first line.
	if i := strings.Index(code, `\n`); i >= 0 {
		code = code[:i]
	}
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		code = code[:i]
	}

	return strings.ReplaceAll(code, "static void", "void"), nil
}
