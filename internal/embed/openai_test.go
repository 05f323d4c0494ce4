package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for OpenAIProvider:
// - Initialize calls the endpoint once and learns the vector width
// - Embed before Initialize fails with ErrNotInitialized
// - Large inputs are split into requests of at most BatchSize, order preserved
// - Empty snippets are sent as a single space
// - A configured width that disagrees with the model fails Initialize

type embeddingServer struct {
	mu       sync.Mutex
	requests [][]string
	width    int
}

func (s *embeddingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req.Input)
	s.mu.Unlock()

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, len(req.Input))
	for i, text := range req.Input {
		vec := make([]float32, s.width)
		vec[0] = float32(len(text))
		// Return items in reverse to exercise index handling.
		data[len(req.Input)-1-i] = item{Object: "embedding", Embedding: vec, Index: i}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
	})
}

func newTestOpenAI(t *testing.T, width, configured, batch int) (*OpenAIProvider, *embeddingServer) {
	t.Helper()
	srv := &embeddingServer{width: width}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:     "test",
		Endpoint:   ts.URL + "/v1",
		Model:      "code-embed",
		Dimensions: configured,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	return p, srv
}

func TestOpenAIProvider_InitializeAndEmbed(t *testing.T) {
	t.Parallel()

	p, srv := newTestOpenAI(t, 4, 0, 2)
	ctx := context.Background()

	_, err := p.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, p.Initialize(ctx))
	assert.Equal(t, 4, p.Dimensions())

	texts := []string{"a", "bb", "", "dddd", "eeeee"}
	vectors, err := p.Embed(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
	assert.Equal(t, float32(1), vectors[2][0], "empty snippet sent as one space")
	assert.Equal(t, float32(5), vectors[4][0])

	srv.mu.Lock()
	defer srv.mu.Unlock()
	// One width check plus three batches of at most two.
	require.Len(t, srv.requests, 4)
	for _, req := range srv.requests[1:] {
		assert.LessOrEqual(t, len(req), 2)
	}
	assert.Equal(t, []string{" ", "dddd"}, srv.requests[2])
}

func TestOpenAIProvider_DimensionMismatch(t *testing.T) {
	t.Parallel()

	p, _ := newTestOpenAI(t, 4, 8, 0)
	err := p.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured 8")
}
