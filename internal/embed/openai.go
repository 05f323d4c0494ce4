package embed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBatchSize caps the number of inputs sent in one request.
const DefaultOpenAIBatchSize = 256

// ErrNotInitialized is returned by Embed before Initialize succeeds.
var ErrNotInitialized = errors.New("provider not initialized")

// OpenAIProvider embeds through an OpenAI-compatible /embeddings endpoint.
// Endpoint may point at a self-hosted server that speaks the same API.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	batchSize int

	mu          sync.RWMutex
	dimensions  int
	initialized bool
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey     string
	Endpoint   string // Base URL; empty uses the public API
	Model      string
	Dimensions int // Requested width; 0 uses the model's native width
	BatchSize  int
}

// NewOpenAIProvider creates an OpenAIProvider. No request is made until Initialize.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai provider: model is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultOpenAIBatchSize
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		dimensions: cfg.Dimensions,
	}, nil
}

// Initialize sends one test request to check connectivity and learn the width.
func (p *OpenAIProvider) Initialize(ctx context.Context) error {
	vectors, err := p.request(ctx, []string{"int main ( )"})
	if err != nil {
		return fmt.Errorf("openai provider: width check failed: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return fmt.Errorf("openai provider: width check returned no embedding")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dimensions != 0 && p.dimensions != len(vectors[0]) {
		return fmt.Errorf("openai provider: model returned %d dimensions, configured %d", len(vectors[0]), p.dimensions)
	}
	p.dimensions = len(vectors[0])
	p.initialized = true
	return nil
}

// Embed requests vectors for texts, splitting large inputs across requests.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.RLock()
	ready := p.initialized
	p.mu.RUnlock()
	if !ready {
		return nil, ErrNotInitialized
	}
	return embedInBatches(ctx, texts, p.batchSize, p.request)
}

func (p *OpenAIProvider) request(ctx context.Context, texts []string) ([][]float32, error) {
	// The API rejects empty strings; unlabeled nodes embed as a single space.
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		inputs[i] = t
	}

	p.mu.RLock()
	dims := p.dimensions
	p.mu.RUnlock()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      inputs,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: dims,
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return vectors, nil
}

// Dimensions returns the vector width, known after Initialize.
func (p *OpenAIProvider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimensions
}

// Close is a no-op; the HTTP client holds no per-provider resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
