package graph

import (
	"errors"
	"fmt"
	"math"
)

// ErrKatzNotConverged indicates Katz power iteration hit its iteration cap.
var ErrKatzNotConverged = errors.New("katz centrality failed to converge")

// Katz defaults.
const (
	DefaultKatzAlpha         = 0.1
	DefaultKatzBeta          = 1.0
	DefaultKatzTolerance     = 1e-6
	DefaultKatzMaxIterations = 1000
)

// KatzOptions configures KatzCentrality.
type KatzOptions struct {
	// Alpha attenuates contributions from longer walks. Default: 0.1
	Alpha float64

	// Beta is the baseline score every node receives. Default: 1.0
	Beta float64

	// Tolerance is the per-node convergence threshold; iteration stops once the
	// summed absolute change falls below n*Tolerance. Default: 1e-6
	Tolerance float64

	// MaxIterations caps the power iteration. Default: 1000
	MaxIterations int
}

// DefaultKatzOptions returns the standard parameters.
func DefaultKatzOptions() KatzOptions {
	return KatzOptions{
		Alpha:         DefaultKatzAlpha,
		Beta:          DefaultKatzBeta,
		Tolerance:     DefaultKatzTolerance,
		MaxIterations: DefaultKatzMaxIterations,
	}
}

func (o *KatzOptions) applyDefaults() {
	if o.Alpha <= 0 {
		o.Alpha = DefaultKatzAlpha
	}
	if o.Beta == 0 {
		o.Beta = DefaultKatzBeta
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultKatzTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultKatzMaxIterations
	}
}

// DegreeCentrality returns deg(v)/(n-1) where deg counts incident edge
// endpoints: every parallel edge counts and a self-loop counts twice. Every
// node scores 1 in graphs with at most one node.
func DegreeCentrality(g *Graph) (map[string]float64, error) {
	n := g.Len()
	scores := make(map[string]float64, n)
	if n <= 1 {
		for _, node := range g.Nodes {
			scores[node.ID] = 1
		}
		return scores, nil
	}

	degree := make(map[string]int, n)
	for _, e := range g.Edges {
		degree[e.From]++
		degree[e.To]++
	}
	s := 1 / float64(n-1)
	for _, node := range g.Nodes {
		scores[node.ID] = float64(degree[node.ID]) * s
	}
	return scores, nil
}

// ClosenessCentrality returns, for each node u over the undirected view,
// (r-1)/sum(d) scaled by (r-1)/(n-1), where r counts the nodes reachable
// from u (u included) and d are their shortest-path distances. Isolated
// nodes score 0.
func ClosenessCentrality(g *Graph) (map[string]float64, error) {
	adj, err := g.Undirected()
	if err != nil {
		return nil, err
	}

	n := g.Len()
	scores := make(map[string]float64, n)
	for _, node := range g.Nodes {
		reached, total := bfsDistances(adj, node.ID)
		if total == 0 || n <= 1 {
			scores[node.ID] = 0
			continue
		}
		r := float64(reached - 1)
		scores[node.ID] = (r / float64(total)) * (r / float64(n-1))
	}
	return scores, nil
}

// bfsDistances returns the number of nodes reachable from src (src included)
// and the sum of their hop distances.
func bfsDistances(adj Adjacency, src string) (int, int) {
	dist := map[string]int{src: 0}
	queue := []string{src}
	total := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for nbr := range adj[cur] {
			if _, ok := dist[nbr]; ok {
				continue
			}
			dist[nbr] = dist[cur] + 1
			total += dist[nbr]
			queue = append(queue, nbr)
		}
	}
	return len(dist), total
}

// KatzCentrality computes Katz centrality over the directed view by power
// iteration of x = alpha*A^T*x + beta starting from zero, then normalizes the
// result to unit Euclidean length.
func KatzCentrality(g *Graph, opts KatzOptions) (map[string]float64, error) {
	opts.applyDefaults()

	adj, err := g.Directed()
	if err != nil {
		return nil, err
	}

	ids := g.NodeIDs()
	n := len(ids)
	x := make(map[string]float64, n)
	for _, id := range ids {
		x[id] = 0
	}
	if n == 0 {
		return x, nil
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		last := x
		x = make(map[string]float64, n)
		for _, id := range ids {
			x[id] = 0
		}
		for _, id := range ids {
			for nbr := range adj[id] {
				x[nbr] += last[id]
			}
		}
		for _, id := range ids {
			x[id] = opts.Alpha*x[id] + opts.Beta
		}

		diff := 0.0
		for _, id := range ids {
			diff += math.Abs(x[id] - last[id])
		}
		if diff < float64(n)*opts.Tolerance {
			normalize(x)
			return x, nil
		}
	}
	return nil, fmt.Errorf("%w after %d iterations", ErrKatzNotConverged, opts.MaxIterations)
}

func normalize(x map[string]float64) {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	s := 1.0
	if sum > 0 {
		s = 1 / math.Sqrt(sum)
	}
	for k, v := range x {
		x[k] = v * s
	}
}

// Profile holds the three per-node centralities of one graph.
type Profile struct {
	Degree    map[string]float64
	Closeness map[string]float64
	Katz      map[string]float64
}

// ComputeProfile computes degree, closeness and Katz centrality for g.
func ComputeProfile(g *Graph) (*Profile, error) {
	degree, err := DegreeCentrality(g)
	if err != nil {
		return nil, fmt.Errorf("degree centrality: %w", err)
	}
	closeness, err := ClosenessCentrality(g)
	if err != nil {
		return nil, fmt.Errorf("closeness centrality: %w", err)
	}
	katz, err := KatzCentrality(g, DefaultKatzOptions())
	if err != nil {
		return nil, fmt.Errorf("katz centrality: %w", err)
	}
	return &Profile{Degree: degree, Closeness: closeness, Katz: katz}, nil
}
