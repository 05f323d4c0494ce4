package joern

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mvp-joe/cpgimage/internal/fsutil"
)

// Fragment is one per-function graph file written by an export.
type Fragment struct {
	Stem string
	Data []byte
}

// LoadFragments reads every regular file in dir, ordered by file name.
func LoadFragments(dir string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fragment dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	fragments := make([]Fragment, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read fragment %s: %w", name, err)
		}
		fragments = append(fragments, Fragment{Stem: fsutil.Stem(name), Data: data})
	}
	return fragments, nil
}

// MergeFragments combines fragments into a single digraph named name. Each
// fragment's outer graph wrapper is replaced by a subgraph named after the
// fragment, so node and edge statements are carried over untouched.
func MergeFragments(name string, fragments []Fragment) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, ErrNoFragments
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %s {\n", quoteID(name))
	for _, f := range fragments {
		body, err := fragmentBody(f.Data)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", f.Stem, err)
		}
		fmt.Fprintf(&buf, "subgraph %s {\n", quoteID(f.Stem))
		buf.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.WriteString("}\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// fragmentBody returns the text between the first '{' and the last '}'.
func fragmentBody(data []byte) ([]byte, error) {
	open := bytes.IndexByte(data, '{')
	closing := bytes.LastIndexByte(data, '}')
	if open < 0 || closing < 0 || closing < open {
		return nil, ErrMalformedFragment
	}
	return bytes.TrimSpace(data[open+1 : closing]), nil
}

func quoteID(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
