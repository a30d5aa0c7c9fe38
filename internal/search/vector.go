package search

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/coachkit/knowledge-engine/internal/embeddings"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

// vectorIndex holds an in-memory chromem collection over the chunks whose
// stored embeddings were produced by the configured model.
type vectorIndex struct {
	collection *chromem.Collection
	chunks     map[string]knowledge.Chunk
}

func buildVectorIndex(ctx context.Context, chunks []knowledge.Chunk, embedder embeddings.Embedder) (*vectorIndex, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection("chunks", nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	idx := &vectorIndex{
		collection: collection,
		chunks:     make(map[string]knowledge.Chunk),
	}

	var docs []chromem.Document
	for _, c := range chunks {
		if len(c.Embedding) == 0 || c.EmbeddingModel != embedder.Name() {
			continue
		}
		idx.chunks[c.ID] = c
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Content:   c.Content,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"document_id":   c.DocumentID,
				"document_type": c.DocumentType,
			},
		})
	}
	if len(docs) > 0 {
		if err := collection.AddDocuments(ctx, docs, 1); err != nil {
			return nil, fmt.Errorf("adding documents: %w", err)
		}
	}
	return idx, nil
}

// score returns every indexed chunk with its cosine similarity to the query
// embedding. Filtering and capping happen in rank, after scoring, because
// chromem's where clause only supports single-value equality.
func (idx *vectorIndex) score(ctx context.Context, queryVec []float32) ([]Result, error) {
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}

	matches, err := idx.collection.QueryEmbedding(ctx, queryVec, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		c, ok := idx.chunks[m.ID]
		if !ok {
			continue
		}
		results = append(results, Result{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			Content:       c.Content,
			Score:         float64(m.Similarity),
			DocumentTitle: c.DocumentTitle,
			DocumentType:  c.DocumentType,
			seq:           c.Seq,
		})
	}
	return results, nil
}
