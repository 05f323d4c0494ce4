package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
)

// ErrEmptyGraph indicates a DOT document without any nodes.
var ErrEmptyGraph = errors.New("graph has no nodes")

// ParseDOT reads a DOT document, including merged documents whose functions
// are nested as subgraphs.
func ParseDOT(text []byte) (*Graph, error) {
	ast, err := gographviz.ParseString(string(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}
	parsed := gographviz.NewGraph()
	if err := gographviz.Analyse(ast, parsed); err != nil {
		return nil, fmt.Errorf("failed to analyse DOT: %w", err)
	}

	g := &Graph{Name: unquote(parsed.Name)}
	seen := make(map[string]bool, len(parsed.Nodes.Nodes))

	for _, n := range parsed.Nodes.Nodes {
		id := unquote(n.Name)
		if seen[id] {
			continue
		}
		seen[id] = true
		label, ok := n.Attrs[gographviz.Label]
		g.Nodes = append(g.Nodes, Node{ID: id, Label: label, HasLabel: ok})
	}

	for _, e := range parsed.Edges.Edges {
		from, to := unquote(e.Src), unquote(e.Dst)
		for _, id := range []string{from, to} {
			if !seen[id] {
				seen[id] = true
				g.Nodes = append(g.Nodes, Node{ID: id})
			}
		}
		g.Edges = append(g.Edges, Edge{From: from, To: to, Label: e.Attrs[gographviz.Label]})
	}

	if len(g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	return g, nil
}

// unquote strips DOT double quotes from an ID. Unquoted IDs pass through.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `\"`, `"`)
	}
	return s
}
