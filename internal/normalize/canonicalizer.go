package normalize

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

// Canonicalizer rewrites a gadget's lines into canonical form.
// Implementations must be safe for concurrent use.
type Canonicalizer interface {
	Canonicalize(lines []string) ([]string, error)
}

// IdentityCanonicalizer returns its input unchanged.
type IdentityCanonicalizer struct{}

func (IdentityCanonicalizer) Canonicalize(lines []string) ([]string, error) {
	return lines, nil
}

// preserved names are never renamed.
var preserved = map[string]bool{
	"main": true, "argc": true, "argv": true, "envp": true,
	"NULL": true, "EOF": true, "errno": true,
	"stdin": true, "stdout": true, "stderr": true,
}

// libraryFunctions are common libc calls kept verbatim so the vulnerable API
// usage stays visible after canonicalization.
var libraryFunctions = map[string]bool{
	"malloc": true, "calloc": true, "realloc": true, "free": true, "alloca": true,
	"memcpy": true, "memmove": true, "memset": true, "memcmp": true, "memchr": true,
	"strcpy": true, "strncpy": true, "strcat": true, "strncat": true, "strlen": true,
	"strcmp": true, "strncmp": true, "strchr": true, "strrchr": true, "strstr": true,
	"strdup": true, "strtok": true, "strtol": true, "strtoul": true,
	"sprintf": true, "snprintf": true, "vsprintf": true, "vsnprintf": true,
	"printf": true, "fprintf": true, "puts": true, "fputs": true, "putchar": true,
	"scanf": true, "sscanf": true, "fscanf": true, "gets": true, "fgets": true,
	"getchar": true, "fgetc": true, "fread": true, "fwrite": true,
	"fopen": true, "fclose": true, "open": true, "close": true, "read": true, "write": true,
	"recv": true, "send": true, "socket": true, "connect": true, "bind": true,
	"listen": true, "accept": true, "atoi": true, "atol": true, "rand": true,
	"exit": true, "abort": true, "assert": true, "wcslen": true, "wcscpy": true,
	"wcsncpy": true, "wcscat": true, "printLine": true, "printIntLine": true,
	"printWLine": true, "printHexCharLine": true,
}

// SymbolCanonicalizer renames user-defined functions to FUN1, FUN2, ... and
// user variables to VAR1, VAR2, ... in order of first appearance. Types,
// struct fields, preserved names and library functions are left alone.
type SymbolCanonicalizer struct {
	language *sitter.Language
}

// NewSymbolCanonicalizer creates a tree-sitter backed canonicalizer for C.
func NewSymbolCanonicalizer() *SymbolCanonicalizer {
	return &SymbolCanonicalizer{
		language: sitter.NewLanguage(c.Language()),
	}
}

type occurrence struct {
	start, end uint
	name       string
	isFunc     bool
}

// Canonicalize parses the joined lines and rewrites identifiers in place.
// Line boundaries are preserved because replacements never span newlines.
func (s *SymbolCanonicalizer) Canonicalize(lines []string) ([]string, error) {
	source := []byte(strings.Join(lines, "\n"))

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(s.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse gadget")
	}
	defer tree.Close()

	occs := collectIdentifiers(tree.RootNode(), source)
	if len(occs) == 0 {
		return lines, nil
	}

	funcNames := make(map[string]bool)
	for _, o := range occs {
		if o.isFunc {
			funcNames[o.name] = true
		}
	}

	renames := make(map[string]string)
	nextFunc, nextVar := 1, 1
	for _, o := range occs {
		if _, ok := renames[o.name]; ok {
			continue
		}
		if funcNames[o.name] {
			renames[o.name] = fmt.Sprintf("FUN%d", nextFunc)
			nextFunc++
		} else {
			renames[o.name] = fmt.Sprintf("VAR%d", nextVar)
			nextVar++
		}
	}

	var b strings.Builder
	b.Grow(len(source))
	last := uint(0)
	for _, o := range occs {
		b.Write(source[last:o.start])
		b.WriteString(renames[o.name])
		last = o.end
	}
	b.Write(source[last:])

	return strings.Split(b.String(), "\n"), nil
}

// collectIdentifiers returns renamable identifiers in source order.
func collectIdentifiers(root *sitter.Node, source []byte) []occurrence {
	var occs []occurrence
	walkTree(root, func(n *sitter.Node) bool {
		if n.Kind() != "identifier" {
			return true
		}
		name := string(source[n.StartByte():n.EndByte()])
		if preserved[name] || libraryFunctions[name] {
			return true
		}
		occs = append(occs, occurrence{
			start:  n.StartByte(),
			end:    n.EndByte(),
			name:   name,
			isFunc: isFunctionName(n),
		})
		return true
	})

	sort.SliceStable(occs, func(i, j int) bool { return occs[i].start < occs[j].start })
	return occs
}

// isFunctionName reports whether an identifier names a called or declared function.
func isFunctionName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}

	var field string
	switch parent.Kind() {
	case "call_expression":
		field = "function"
	case "function_declarator":
		field = "declarator"
	default:
		return false
	}

	target := parent.ChildByFieldName(field)
	return target != nil && target.StartByte() == n.StartByte() && target.EndByte() == n.EndByte()
}

// walkTree visits nodes depth-first, descending while visitor returns true.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}
