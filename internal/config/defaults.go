package config

// EmbeddingModels are the supported embedding model names, in wizard
// display order.
var EmbeddingModels = []string{
	"text-embedding-3-small",
	"text-embedding-3-large",
	"text-embedding-ada-002",
}

// DefaultExcludes are glob patterns skipped by file import by default.
var DefaultExcludes = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"*.lock",
	"*.min.js",
	"*.min.css",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: ".kengine.db",
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			BatchSize:         10,
			BatchDelayMS:      1000,
			RequestsPerMinute: 60,
		},
		Chunking: ChunkingConfig{
			MaxTokens:       500,
			OverlapTokens:   50,
			PreserveContext: true,
		},
		Search: SearchConfig{
			Mode:       SearchLexical,
			Threshold:  0.3,
			MaxResults: 5,
		},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8787,
			CORSOrigins: []string{"*"},
		},
		Import: ImportConfig{
			Include:   []string{"**/*.md", "**/*.txt"},
			Exclude:   DefaultExcludes,
			DocType:   "reference",
			Namespace: "default",
		},
		VectorStores: map[string]string{},
	}
}
