package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for HashProvider:
// - Equal texts map to equal vectors, different texts to different vectors
// - Vectors have the configured width and stay within [-1, 1]
// - Widths beyond one digest do not simply repeat the first digest
// - dims <= 0 falls back to the default width

func TestHashProvider_Deterministic(t *testing.T) {
	t.Parallel()

	p := NewHashProvider(16)
	require.NoError(t, p.Initialize(context.Background()))

	vectors, err := p.Embed(context.Background(), []string{"int VAR1 = 0 ;", "return VAR1 ;", "int VAR1 = 0 ;"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Equal(t, vectors[0], vectors[2])
	assert.NotEqual(t, vectors[0], vectors[1])
	for _, v := range vectors {
		require.Len(t, v, 16)
		for _, x := range v {
			assert.GreaterOrEqual(t, x, float32(-1))
			assert.LessOrEqual(t, x, float32(1))
		}
	}
	assert.NotEqual(t, vectors[0][:8], vectors[0][8:16])
}

func TestHashProvider_DefaultDimensions(t *testing.T) {
	t.Parallel()

	p := NewHashProvider(0)
	assert.Equal(t, DefaultHashDimensions, p.Dimensions())
	assert.NoError(t, p.Close())
}
