package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is where the engine looks for its configuration file.
const DefaultPath = ".kengine.yml"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (KENGINE_*). Nested keys use a double
// underscore: KENGINE_SERVER__PORT maps to server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("KENGINE_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "KENGINE_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validEmbeddingModels is the set of recognized embedding model names.
var validEmbeddingModels = func() map[string]bool {
	m := make(map[string]bool, len(EmbeddingModels))
	for _, name := range EmbeddingModels {
		m[name] = true
	}
	return m
}()

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}

	if c.Embedding.Model != "" && !validEmbeddingModels[c.Embedding.Model] {
		return fmt.Errorf("invalid embedding model %q: must be one of %s",
			c.Embedding.Model, strings.Join(EmbeddingModels, ", "))
	}
	if c.Embedding.BatchSize < 0 {
		return fmt.Errorf("embedding batch_size must be non-negative")
	}
	if c.Embedding.RequestsPerMinute < 0 {
		return fmt.Errorf("embedding requests_per_minute must be non-negative")
	}

	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("chunking max_tokens must be positive")
	}
	if c.Chunking.OverlapTokens < 0 {
		return fmt.Errorf("chunking overlap_tokens must be non-negative")
	}
	if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("chunking overlap_tokens must be smaller than max_tokens")
	}

	if c.Search.Mode != "" && c.Search.Mode != SearchLexical && c.Search.Mode != SearchVector {
		return fmt.Errorf("invalid search mode %q: must be lexical or vector", c.Search.Mode)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("search threshold must be between 0 and 1")
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search max_results must be non-negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	return nil
}

// OpenAIAPIKey returns the OpenAI API key from the environment.
func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}
