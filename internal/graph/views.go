package graph

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
)

// Adjacency maps each node ID to its neighbours.
type Adjacency map[string]map[string]graph.Edge[string]

// Undirected returns the simple undirected view: parallel edges collapse into
// one and self-loops are dropped.
func (g *Graph) Undirected() (Adjacency, error) {
	return g.view(graph.New(graph.StringHash), false)
}

// Directed returns the directed view: parallel edges collapse into one and
// self-loops are kept.
func (g *Graph) Directed() (Adjacency, error) {
	return g.view(graph.New(graph.StringHash, graph.Directed()), true)
}

func (g *Graph) view(v graph.Graph[string, string], keepSelfLoops bool) (Adjacency, error) {
	for _, n := range g.Nodes {
		if err := v.AddVertex(n.ID); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add node %s: %w", n.ID, err)
		}
	}
	for _, e := range g.Edges {
		if e.From == e.To && !keepSelfLoops {
			continue
		}
		if err := v.AddEdge(e.From, e.To); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	adj, err := v.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to build adjacency: %w", err)
	}
	return adj, nil
}
