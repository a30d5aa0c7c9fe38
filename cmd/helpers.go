package cmd

import (
	"fmt"
	"time"

	"github.com/coachkit/knowledge-engine/internal/chunker"
	"github.com/coachkit/knowledge-engine/internal/config"
	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/embeddings"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/search"
	"github.com/coachkit/knowledge-engine/internal/syncer"
	"github.com/coachkit/knowledge-engine/internal/vectorindex"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `kengine init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured database and wraps it in a document store.
func openStore(cfg *config.Config) (*db.DB, *knowledge.Store, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database, knowledge.NewStore(database), nil
}

// newEmbedder creates the configured embedder. Requires OPENAI_API_KEY.
func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	apiKey := config.OpenAIAPIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for embeddings")
	}
	return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.Embedding.Model)), nil
}

// newBatcher wraps the embedder in a paced batch generator.
func newBatcher(cfg *config.Config, embedder embeddings.Embedder) *embeddings.BatchGenerator {
	opts := []embeddings.BatchOption{
		embeddings.WithBatchSize(cfg.Embedding.BatchSize),
		embeddings.WithBatchDelay(time.Duration(cfg.Embedding.BatchDelayMS) * time.Millisecond),
	}
	if rpm := cfg.Embedding.RequestsPerMinute; rpm > 0 {
		opts = append(opts, embeddings.WithRateLimit(float64(rpm)/60.0, 1))
	}
	return embeddings.NewBatchGenerator(embedder, opts...)
}

// chunkerOptions maps the chunking config onto chunker options.
func chunkerOptions(cfg *config.Config) chunker.Options {
	return chunker.Options{
		MaxTokens:       cfg.Chunking.MaxTokens,
		OverlapTokens:   cfg.Chunking.OverlapTokens,
		PreserveContext: cfg.Chunking.PreserveContext,
	}
}

// newProcessor builds the processing pipeline. Embeddings are optional:
// without an API key the pipeline only chunks.
func newProcessor(cfg *config.Config, store *knowledge.Store, requireEmbeddings bool) (*knowledge.Processor, error) {
	opts := []knowledge.ProcessorOption{knowledge.WithChunkOptions(chunkerOptions(cfg))}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		if requireEmbeddings {
			return nil, err
		}
	} else {
		opts = append(opts, knowledge.WithEmbeddings(newBatcher(cfg, embedder)))
	}
	return knowledge.NewProcessor(store, opts...), nil
}

// newSearcher builds the searcher, with vector mode available only when an
// embedder can be created.
func newSearcher(cfg *config.Config, store *knowledge.Store) *search.Searcher {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		embedder = nil
	}
	return search.NewSearcher(store, embedder)
}

// newReconciler builds the sync reconciler, or returns nil when no remote
// vector stores are configured.
func newReconciler(cfg *config.Config, store *knowledge.Store) *syncer.Reconciler {
	if len(cfg.VectorStores) == 0 {
		return nil
	}
	return syncer.NewReconciler(store, func(namespace string) (vectorindex.RemoteIndex, error) {
		storeID, ok := cfg.VectorStores[namespace]
		if !ok {
			return nil, fmt.Errorf("no vector store configured for namespace %q", namespace)
		}
		return vectorindex.NewOpenAIIndex(config.OpenAIAPIKey(), storeID)
	})
}
