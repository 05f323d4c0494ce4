package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file base name searched for when none is given.
const FileName = "cpgimage"

// EnvPrefix prefixes every environment override, e.g. CPGIMAGE_JOERN_PATH.
const EnvPrefix = "CPGIMAGE"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	searchDir  string
	configFile string
}

// NewLoader creates a loader. An explicit configFile must exist; otherwise
// cpgimage.yaml is looked up in searchDir and may be absent.
func NewLoader(searchDir, configFile string) Loader {
	return &loader{
		searchDir:  searchDir,
		configFile: configFile,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CPGIMAGE_*)
// 2. Config file (cpgimage.yaml, or the explicit file)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(l.searchDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CPGIMAGE_EMBEDDING_PROVIDER)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// No file found by search is fine; an explicit file must be readable.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("joern.path")
	v.BindEnv("joern.language")
	v.BindEnv("joern.script")
	v.BindEnv("joern.timeout")

	v.BindEnv("pipeline.workers")
	v.BindEnv("pipeline.source_pattern")
	v.BindEnv("pipeline.binary_pattern")
	v.BindEnv("pipeline.graph_pattern")

	v.BindEnv("embedding.provider")
	v.BindEnv("embedding.model")
	v.BindEnv("embedding.dimensions")
	v.BindEnv("embedding.endpoint")
	// The conventional OpenAI variable is honoured as a fallback.
	v.BindEnv("embedding.api_key", EnvPrefix+"_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("embedding.cache_size")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("joern.path", defaults.Joern.Path)
	v.SetDefault("joern.language", defaults.Joern.Language)
	v.SetDefault("joern.script", defaults.Joern.Script)
	v.SetDefault("joern.timeout", defaults.Joern.Timeout)

	v.SetDefault("pipeline.workers", defaults.Pipeline.Workers)
	v.SetDefault("pipeline.source_pattern", defaults.Pipeline.SourcePattern)
	v.SetDefault("pipeline.binary_pattern", defaults.Pipeline.BinaryPattern)
	v.SetDefault("pipeline.graph_pattern", defaults.Pipeline.GraphPattern)

	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("embedding.endpoint", defaults.Embedding.Endpoint)
	v.SetDefault("embedding.api_key", defaults.Embedding.APIKey)
	v.SetDefault("embedding.cache_size", defaults.Embedding.CacheSize)
}
