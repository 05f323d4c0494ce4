package embed

import (
	"errors"
	"fmt"
)

// Provider names accepted by NewProvider.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

var (
	// ErrNoProvider is returned when no provider was chosen. There is no
	// implicit default: hash vectors carry no meaning and must be asked for.
	ErrNoProvider = errors.New("no embedding provider configured (set embedding.provider to openai or hash)")

	// ErrModelNotSupported is returned when a model is named for a provider
	// that ignores it.
	ErrModelNotSupported = errors.New("embedding provider does not take a model")
)

// Config contains configuration for creating an embedding provider.
type Config struct {
	// Provider specifies which embedding provider to use ("hash" or "openai").
	Provider string

	// Model names the embedding model (openai provider).
	Model string

	// Dimensions is the vector width. Required for hash; optional for openai.
	Dimensions int

	// Endpoint is the base URL of an OpenAI-compatible service.
	Endpoint string

	// APIKey for the openai provider.
	APIKey string

	// CacheSize bounds the snippet cache. Negative disables caching.
	CacheSize int
}

// NewProvider creates an embedding provider based on the configuration.
// Unless CacheSize is negative the provider is wrapped in a CachedProvider.
func NewProvider(config Config) (Provider, error) {
	var provider Provider

	switch config.Provider {
	case "":
		return nil, ErrNoProvider

	case ProviderHash:
		if config.Model != "" {
			return nil, fmt.Errorf("%w: hash provider given model %q", ErrModelNotSupported, config.Model)
		}
		provider = NewHashProvider(config.Dimensions)

	case ProviderOpenAI:
		p, err := NewOpenAIProvider(OpenAIConfig{
			APIKey:     config.APIKey,
			Endpoint:   config.Endpoint,
			Model:      config.Model,
			Dimensions: config.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		provider = p

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: hash, openai)", config.Provider)
	}

	if config.CacheSize < 0 {
		return provider, nil
	}
	cached, err := NewCachedProvider(provider, config.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
