package embed

import (
	"context"
	"fmt"

	"github.com/maypok86/otter"
)

// DefaultCacheSize is the number of snippet vectors kept by CachedProvider.
const DefaultCacheSize = 100_000

// CachedProvider memoizes another provider's vectors by text. Program graphs
// repeat the same snippets many times across a corpus, so only texts not seen
// before reach the wrapped provider.
type CachedProvider struct {
	inner Provider
	cache otter.Cache[string, []float32]
}

// NewCachedProvider wraps inner with a cache of up to size entries.
func NewCachedProvider(inner Provider, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := otter.MustBuilder[string, []float32](size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: cache}, nil
}

// Initialize initializes the wrapped provider.
func (p *CachedProvider) Initialize(ctx context.Context) error {
	return p.inner.Initialize(ctx)
}

// Embed serves cached texts from memory and embeds the rest in one call,
// de-duplicated.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	pending := make(map[string][]int)

	for i, text := range texts {
		if v, ok := p.cache.Get(text); ok {
			results[i] = v
			continue
		}
		if _, ok := pending[text]; !ok {
			missing = append(missing, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(missing) > 0 {
		vectors, err := p.inner.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missing) {
			return nil, fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(missing))
		}
		for j, text := range missing {
			p.cache.Set(text, vectors[j])
			for _, i := range pending[text] {
				results[i] = vectors[j]
			}
		}
	}

	return results, nil
}

// Dimensions returns the wrapped provider's width.
func (p *CachedProvider) Dimensions() int {
	return p.inner.Dimensions()
}

// Close stops the cache and closes the wrapped provider.
func (p *CachedProvider) Close() error {
	p.cache.Close()
	return p.inner.Close()
}
