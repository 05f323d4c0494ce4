// Package embed turns code snippets into fixed-length vectors.
package embed

import "context"

// Provider defines the interface for embedding text into vectors.
// Implementations must be safe for concurrent use once initialized; one
// provider is shared by every worker of a batch.
type Provider interface {
	// Initialize prepares the provider and blocks until ready.
	// For remote providers this validates the endpoint and learns the
	// vector width. Must be called before Embed().
	Initialize(ctx context.Context) error

	// Embed converts texts into vectors, one per text, in input order.
	// Initialize() must be called first.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the width of the vectors produced by this provider.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}
