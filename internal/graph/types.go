// Package graph holds the attributed program graphs read from exported DOT
// files and the centrality measures computed over them.
package graph

// Node is one vertex of an exported program graph.
type Node struct {
	ID string `json:"id"` // Unquoted DOT node ID

	// Label is the raw label attribute as written in the DOT file, with its
	// quotes or HTML angle brackets still in place. Empty when HasLabel is false.
	Label    string `json:"label,omitempty"`
	HasLabel bool   `json:"has_label"`
}

// Edge is one directed edge. Parallel edges and self-loops are preserved here;
// the views decide how to treat them.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Graph is an attributed program graph. Nodes are kept in declaration order,
// with nodes that only appear as edge endpoints appended in first-seen order.
type Graph struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeIDs returns node IDs in graph order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.Nodes)
}
