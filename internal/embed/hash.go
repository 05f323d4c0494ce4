package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DefaultHashDimensions is the vector width of a HashProvider when none is set.
const DefaultHashDimensions = 384

// HashProvider generates deterministic embeddings from a hash of each text.
// It needs no model or network and is used offline and in tests.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a HashProvider. dims <= 0 selects DefaultHashDimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashProvider{dimensions: dims}
}

// Initialize is a no-op.
func (p *HashProvider) Initialize(ctx context.Context) error {
	return nil
}

// Embed hashes each text and spreads the digest over the vector, so equal
// texts always map to equal vectors.
func (p *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hash := sha256.Sum256([]byte(text))

		embedding := make([]float32, p.dimensions)
		for j := 0; j < p.dimensions; j++ {
			// Re-hash each time the digest is used up so long vectors do not repeat.
			if j > 0 && j%(len(hash)/4) == 0 {
				hash = sha256.Sum256(hash[:])
			}
			offset := (j * 4) % len(hash)
			val := binary.BigEndian.Uint32(hash[offset : offset+4])
			// Normalize to [-1, 1] range
			embedding[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
		}

		embeddings[i] = embedding
	}

	return embeddings, nil
}

// Dimensions returns the vector width.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *HashProvider) Close() error {
	return nil
}
