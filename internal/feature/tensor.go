// Package feature fuses graph centralities with code embeddings into
// fixed-shape tensors, one per program graph.
package feature

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/cpgimage/internal/graph"
)

// NumChannels is the number of centrality channels in every tensor.
const NumChannels = 3

// Channel order is fixed: degree, closeness, katz.
const (
	ChannelDegree = iota
	ChannelCloseness
	ChannelKatz
)

// ChannelNames labels the channels in order.
var ChannelNames = [NumChannels]string{"degree", "closeness", "katz"}

// ErrDimensionMismatch indicates vectors that disagree with the expected
// count or width.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Tensor holds one graph's features: Channels[c][node] is a Dim-length vector.
type Tensor struct {
	Dim      int
	Channels [NumChannels][][]float32
}

// Nodes returns the node count shared by every channel.
func (t *Tensor) Nodes() int {
	return len(t.Channels[0])
}

// Fuse scales each node's embedding by each of its centralities.
// vectors[j] belongs to nodeIDs[j]; all vectors must have the same width.
func Fuse(nodeIDs []string, profile *graph.Profile, vectors [][]float32) (*Tensor, error) {
	if len(vectors) != len(nodeIDs) {
		return nil, fmt.Errorf("%w: %d vectors for %d nodes", ErrDimensionMismatch, len(vectors), len(nodeIDs))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	measures := [NumChannels]map[string]float64{profile.Degree, profile.Closeness, profile.Katz}
	t := &Tensor{Dim: dim}
	for c := range t.Channels {
		t.Channels[c] = make([][]float32, len(nodeIDs))
	}

	for j, id := range nodeIDs {
		vec := vectors[j]
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: node %s has %d values, want %d", ErrDimensionMismatch, id, len(vec), dim)
		}
		for c, scores := range measures {
			centrality, ok := scores[id]
			if !ok {
				return nil, fmt.Errorf("no %s centrality for node %s", ChannelNames[c], id)
			}
			row := make([]float32, dim)
			for k, v := range vec {
				row[k] = float32(centrality * float64(v))
			}
			t.Channels[c][j] = row
		}
	}
	return t, nil
}
