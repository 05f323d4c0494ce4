// Package config loads cpgimage settings from defaults, an optional
// cpgimage.yaml file and CPGIMAGE_* environment variables, in increasing order
// of priority. Command-line flags are applied on top by the CLI.
package config

import (
	"strings"
	"time"

	"github.com/mvp-joe/cpgimage/internal/embed"
	"github.com/mvp-joe/cpgimage/internal/joern"
)

// Config represents the complete cpgimage configuration.
type Config struct {
	Joern     JoernConfig     `yaml:"joern" mapstructure:"joern"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
}

// JoernConfig locates and tunes the Joern tools.
type JoernConfig struct {
	Path     string        `yaml:"path" mapstructure:"path"`         // installation directory
	Language string        `yaml:"language" mapstructure:"language"` // joern-parse --language
	Script   string        `yaml:"script" mapstructure:"script"`     // lineinfo_json export script
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`   // per invocation, 0 = none
}

// PipelineConfig sizes the worker pool and selects stage inputs.
type PipelineConfig struct {
	Workers       int    `yaml:"workers" mapstructure:"workers"` // 0 = one per CPU
	SourcePattern string `yaml:"source_pattern" mapstructure:"source_pattern"`
	BinaryPattern string `yaml:"binary_pattern" mapstructure:"binary_pattern"`
	GraphPattern  string `yaml:"graph_pattern" mapstructure:"graph_pattern"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "openai" or "hash"; unset until chosen
	Model      string `yaml:"model" mapstructure:"model"`           // e.g. "text-embedding-3-small"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // vector width
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // OpenAI-compatible base URL
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	CacheSize  int    `yaml:"cache_size" mapstructure:"cache_size"` // snippet cache entries, -1 disables
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Joern: JoernConfig{
			Language: "c",
		},
		Pipeline: PipelineConfig{
			SourcePattern: "*.c",
			BinaryPattern: "*.bin",
			GraphPattern:  "*.dot",
		},
		// No provider by default: image refuses to run until one is chosen.
		Embedding: EmbeddingConfig{
			Dimensions: 128,
			CacheSize:  embed.DefaultCacheSize,
		},
	}
}

// EmbedConfig converts the embedding section for embed.NewProvider.
func (c *Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   strings.ToLower(c.Embedding.Provider),
		Model:      c.Embedding.Model,
		Dimensions: c.Embedding.Dimensions,
		Endpoint:   c.Embedding.Endpoint,
		APIKey:     c.Embedding.APIKey,
		CacheSize:  c.Embedding.CacheSize,
	}
}

// ToolConfig converts the joern section for joern.NewCLITool.
func (c *Config) ToolConfig() joern.CLIToolConfig {
	return joern.CLIToolConfig{
		Dir:      c.Joern.Path,
		Language: c.Joern.Language,
		Timeout:  c.Joern.Timeout,
	}
}
