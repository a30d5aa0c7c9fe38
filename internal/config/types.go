package config

// SearchMode selects the default retrieval ranking strategy.
type SearchMode string

const (
	SearchLexical SearchMode = "lexical"
	SearchVector  SearchMode = "vector"
)

// Config is the top-level engine configuration, corresponding to .kengine.yml.
type Config struct {
	DatabasePath string          `yaml:"database_path" koanf:"database_path"`
	Embedding    EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Chunking     ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Search       SearchConfig    `yaml:"search" koanf:"search"`
	Server       ServerConfig    `yaml:"server" koanf:"server"`
	Import       ImportConfig    `yaml:"import" koanf:"import"`
	// VectorStores maps a document namespace to the remote vector store
	// that mirrors it.
	VectorStores map[string]string `yaml:"vector_stores" koanf:"vector_stores"`
}

// EmbeddingConfig selects the embedding model and paces batch generation.
type EmbeddingConfig struct {
	Model             string `yaml:"model" koanf:"model"`
	BatchSize         int    `yaml:"batch_size" koanf:"batch_size"`
	BatchDelayMS      int    `yaml:"batch_delay_ms" koanf:"batch_delay_ms"`
	RequestsPerMinute int    `yaml:"requests_per_minute" koanf:"requests_per_minute"`
}

// ChunkingConfig tunes how documents are split before embedding.
type ChunkingConfig struct {
	MaxTokens       int  `yaml:"max_tokens" koanf:"max_tokens"`
	OverlapTokens   int  `yaml:"overlap_tokens" koanf:"overlap_tokens"`
	PreserveContext bool `yaml:"preserve_context" koanf:"preserve_context"`
}

// SearchConfig sets retrieval defaults.
type SearchConfig struct {
	Mode       SearchMode `yaml:"mode" koanf:"mode"`
	Threshold  float64    `yaml:"threshold" koanf:"threshold"`
	MaxResults int        `yaml:"max_results" koanf:"max_results"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// ImportConfig sets file import defaults.
type ImportConfig struct {
	Include   []string `yaml:"include" koanf:"include"`
	Exclude   []string `yaml:"exclude" koanf:"exclude"`
	DocType   string   `yaml:"doc_type" koanf:"doc_type"`
	Namespace string   `yaml:"namespace" koanf:"namespace"`
}
