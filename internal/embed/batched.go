package embed

import (
	"context"
	"fmt"
)

// embedFunc embeds one request's worth of texts.
type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embedInBatches splits texts into requests of at most batchSize, runs them
// sequentially, and returns the vectors in input order.
func embedInBatches(ctx context.Context, texts []string, batchSize int, embed embedFunc) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return [][]float32{}, nil
	}
	if batchSize <= 0 {
		batchSize = total
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, total)

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batchIdx * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}

		vectors, err := embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", batchIdx+1, numBatches, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("batch %d/%d: got %d vectors for %d texts", batchIdx+1, numBatches, len(vectors), end-start)
		}
		copy(results[start:end], vectors)
	}

	return results, nil
}
