// Package search answers ranked similarity queries over processed document
// chunks, in either vector (cosine) or lexical (term-rank) mode, and
// assembles multi-query retrieval results into AI-ready context.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coachkit/knowledge-engine/internal/embeddings"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

// Mode selects the retrieval ranking strategy.
type Mode string

const (
	// ModeLexical ranks by normalized term-relevance between the query and
	// indexed chunk text.
	ModeLexical Mode = "lexical"
	// ModeVector ranks by cosine similarity between the query embedding and
	// stored chunk embeddings.
	ModeVector Mode = "vector"
)

// DefaultMaxResults caps a search when the caller does not say otherwise.
const DefaultMaxResults = 5

// Options narrows and bounds a similarity query.
type Options struct {
	// Threshold drops results scoring below it.
	Threshold float64 `json:"threshold"`
	// MaxResults caps the result list.
	MaxResults int `json:"max_results"`
	// DocTypes restricts results to documents of the given types.
	DocTypes []string `json:"doc_types,omitempty"`
	// DocIDs restricts results to the given documents.
	DocIDs []string `json:"doc_ids,omitempty"`
	// Mode selects vector or lexical ranking. Defaults to lexical.
	Mode Mode `json:"mode,omitempty"`
}

// Result is one ranked chunk.
type Result struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`

	seq int64
}

// Searcher runs similarity queries over the active chunk corpus. The
// in-memory indexes are rebuilt from the store via Refresh; Search refreshes
// lazily on first use.
type Searcher struct {
	store    *knowledge.Store
	embedder embeddings.Embedder

	mu      sync.RWMutex
	vector  *vectorIndex
	lexical *lexicalIndex
	loaded  bool
}

// NewSearcher creates a searcher over the store. The embedder may be nil,
// in which case vector mode is unavailable.
func NewSearcher(store *knowledge.Store, embedder embeddings.Embedder) *Searcher {
	return &Searcher{store: store, embedder: embedder}
}

// Refresh rebuilds both retrieval indexes from the store's active chunks.
func (s *Searcher) Refresh(ctx context.Context) error {
	chunks, err := s.store.ActiveChunks(ctx)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}

	lexical := buildLexicalIndex(chunks)

	var vector *vectorIndex
	if s.embedder != nil {
		// Only chunks embedded by the same model are comparable to the
		// query embedding; mixed-model scoring is meaningless.
		vector, err = buildVectorIndex(ctx, chunks, s.embedder)
		if err != nil {
			return fmt.Errorf("building vector index: %w", err)
		}
	}

	s.mu.Lock()
	s.lexical = lexical
	s.vector = vector
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Searcher) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Search returns chunks ranked by relevance to the query, strictly
// non-increasing by score, every score at or above the threshold, at most
// MaxResults long. Ties are broken by chunk insertion order.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Mode == "" {
		opts.Mode = ModeLexical
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []Result
	switch opts.Mode {
	case ModeLexical:
		scored = s.lexical.score(query)
	case ModeVector:
		if s.embedder == nil || s.vector == nil {
			return nil, fmt.Errorf("vector search unavailable: no embedder configured")
		}
		vectors, err := s.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		if len(vectors) == 0 {
			return nil, fmt.Errorf("embedding query: provider returned no vector")
		}
		scored, err = s.vector.score(ctx, vectors[0])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown search mode %q", opts.Mode)
	}

	return rank(scored, opts), nil
}

// SearchWithVariations broadens recall by querying each variation the
// strategy generates and merging the deduplicated results.
func (s *Searcher) SearchWithVariations(ctx context.Context, query string, opts Options, strategy VariationStrategy) ([]Result, error) {
	if strategy == nil {
		strategy = NoVariations{}
	}
	variations := strategy.Variations(query)
	if len(variations) == 0 {
		variations = []string{query}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	// Each variation fetches a slightly padded share so the merged set
	// still fills MaxResults after deduplication.
	perVariation := opts
	perVariation.MaxResults = opts.MaxResults/len(variations) + 2

	var merged []Result
	seen := make(map[string]bool)
	for _, v := range variations {
		results, err := s.Search(ctx, v, perVariation)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if seen[r.ChunkID] {
				continue
			}
			seen[r.ChunkID] = true
			merged = append(merged, r)
		}
	}

	sortResults(merged)
	if len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}
	return merged, nil
}

// rank filters, orders and caps scored results per the options.
func rank(scored []Result, opts Options) []Result {
	filtered := scored[:0:0]
	for _, r := range scored {
		if r.Score < opts.Threshold {
			continue
		}
		if len(opts.DocTypes) > 0 && !contains(opts.DocTypes, r.DocumentType) {
			continue
		}
		if len(opts.DocIDs) > 0 && !contains(opts.DocIDs, r.DocumentID) {
			continue
		}
		filtered = append(filtered, r)
	}

	sortResults(filtered)
	if len(filtered) > opts.MaxResults {
		filtered = filtered[:opts.MaxResults]
	}
	return filtered
}

// sortResults orders by score descending, breaking exact ties by chunk
// insertion order so equal inputs always rank identically.
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].seq < results[j].seq
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
