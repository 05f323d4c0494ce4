package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/cpgimage/internal/embed"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrEmptyModel indicates missing embedding model
	ErrEmptyModel = errors.New("empty embedding model")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidPattern indicates a file pattern that does not compile
	ErrInvalidPattern = errors.New("invalid file pattern")

	// ErrInvalidTimeout indicates a negative tool timeout
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrEmptyLanguage indicates a missing joern-parse language
	ErrEmptyLanguage = errors.New("empty parse language")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateJoern(&cfg.Joern); err != nil {
		errs = append(errs, err)
	}
	if err := validatePipeline(&cfg.Pipeline); err != nil {
		errs = append(errs, err)
	}
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateJoern(cfg *JoernConfig) error {
	var errs []error

	// Path is checked by the graph command, the only stage that needs it.
	if strings.TrimSpace(cfg.Language) == "" {
		errs = append(errs, fmt.Errorf("%w: language is required", ErrEmptyLanguage))
	}
	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidTimeout, cfg.Timeout))
	}

	return joinErrors(errs)
}

func validatePipeline(cfg *PipelineConfig) error {
	var errs []error

	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	patterns := []struct{ key, value string }{
		{"source_pattern", cfg.SourcePattern},
		{"binary_pattern", cfg.BinaryPattern},
		{"graph_pattern", cfg.GraphPattern},
	}
	for _, p := range patterns {
		if p.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalidPattern, p.key))
			continue
		}
		if _, err := glob.Compile(p.value); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %v", ErrInvalidPattern, p.key, p.value, err))
		}
	}

	return joinErrors(errs)
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "":
		// Left unset; commands that embed reject it themselves.
	case embed.ProviderHash:
		if cfg.Dimensions <= 0 {
			errs = append(errs, fmt.Errorf("%w: dimensions must be positive for the hash provider, got %d", ErrInvalidDimensions, cfg.Dimensions))
		}
	case embed.ProviderOpenAI:
		if strings.TrimSpace(cfg.Model) == "" {
			errs = append(errs, fmt.Errorf("%w: model is required for the openai provider", ErrEmptyModel))
		}
		if cfg.Dimensions < 0 {
			errs = append(errs, fmt.Errorf("%w: dimensions cannot be negative, got %d", ErrInvalidDimensions, cfg.Dimensions))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'hash' or 'openai', got '%s'", ErrInvalidProvider, cfg.Provider))
	}

	return joinErrors(errs)
}

// validationErrors reports several problems at once while still matching
// each of them with errors.Is.
type validationErrors []error

func (e validationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e validationErrors) Unwrap() []error {
	return e
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Nested groups are flattened.
func joinErrors(errs []error) error {
	var flat []error
	for _, err := range errs {
		if group, ok := err.(validationErrors); ok {
			flat = append(flat, group...)
			continue
		}
		flat = append(flat, err)
	}
	errs = flat

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return validationErrors(errs)
	}
}
