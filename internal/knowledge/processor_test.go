package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coachkit/knowledge-engine/internal/chunker"
	"github.com/coachkit/knowledge-engine/internal/embeddings"
)

// stubEmbedder produces fixed-size vectors, optionally failing every call.
type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, errors.New("embedding provider down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }
func (s *stubEmbedder) Name() string    { return "stub-model" }

func paragraphText(paragraphs, wordsPer int) string {
	var sb strings.Builder
	for i := 0; i < paragraphs; i++ {
		for j := 0; j < wordsPer; j++ {
			sb.WriteString("insight ")
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func TestProcessDocumentLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// ~2,400 characters of paragraph text with a 100-token budget must
	// produce at least two chunks.
	doc := mustCreateDocument(t, store, "Lifecycle", paragraphText(12, 25), "coach")

	batcher := embeddings.NewBatchGenerator(&stubEmbedder{}, embeddings.WithBatchDelay(0))
	var updates []Job
	p := NewProcessor(store,
		WithEmbeddings(batcher),
		WithChunkOptions(chunker.Options{MaxTokens: 100}),
		WithProgress(func(j Job) { updates = append(updates, j) }),
	)

	job, err := p.Process(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if job.Status != JobCompleted || job.Progress != 100 {
		t.Errorf("unexpected final job state: %+v", job)
	}

	chunks, err := store.ChunksForDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ChunksForDocument: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if len(c.Embedding) != 3 {
			t.Errorf("chunk %d missing embedding", i)
		}
		if c.EmbeddingModel != "stub-model" {
			t.Errorf("chunk %d has model %q", i, c.EmbeddingModel)
		}
	}

	// Progress callback saw pending and completed states.
	if len(updates) < 2 {
		t.Fatalf("expected several progress updates, got %d", len(updates))
	}
	if updates[0].Status != JobPending {
		t.Errorf("first update should be pending, got %s", updates[0].Status)
	}
	if last := updates[len(updates)-1]; last.Status != JobCompleted {
		t.Errorf("last update should be completed, got %s", last.Status)
	}
}

func TestProcessFailureKeepsPreviousChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc := mustCreateDocument(t, store, "Doc", paragraphText(4, 20), "")

	// First run without embeddings stores a chunk set.
	p1 := NewProcessor(store, WithChunkOptions(chunker.Options{MaxTokens: 50}))
	if _, err := p1.Process(ctx, doc.ID); err != nil {
		t.Fatalf("Process (chunking): %v", err)
	}
	before, err := store.ChunksForDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ChunksForDocument: %v", err)
	}
	if len(before) == 0 {
		t.Fatal("expected chunks from the first run")
	}

	// Second run fails on embedding: job failed, old chunks intact.
	batcher := embeddings.NewBatchGenerator(&stubEmbedder{fail: true}, embeddings.WithBatchDelay(0))
	p2 := NewProcessor(store, WithEmbeddings(batcher), WithChunkOptions(chunker.Options{MaxTokens: 50}))
	job, err := p2.Process(ctx, doc.ID)
	if err == nil {
		t.Fatal("expected processing error")
	}
	got, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobFailed || got.ErrorMsg == "" {
		t.Errorf("expected failed job with error text, got %+v", got)
	}

	after, err := store.ChunksForDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ChunksForDocument: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("previous chunk set was disturbed: before %d, after %d", len(before), len(after))
	}
	for i := range after {
		if len(after[i].Embedding) != 0 {
			t.Errorf("chunk %d gained a partial embedding", i)
		}
	}
}

func TestProcessUnknownDocument(t *testing.T) {
	store := setupTestStore(t)
	p := NewProcessor(store)
	if _, err := p.Process(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown document")
	}
}

func TestProcessDeletedDocument(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	doc := mustCreateDocument(t, store, "Doc", "content", "")
	if err := store.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	p := NewProcessor(store)
	if _, err := p.Process(ctx, doc.ID); err == nil {
		t.Fatal("expected error for tombstoned document")
	}
}

func TestProcessPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	mustCreateDocument(t, store, "A", paragraphText(2, 10), "")
	mustCreateDocument(t, store, "B", paragraphText(2, 10), "")

	p := NewProcessor(store)
	processed, errs := p.ProcessPending(ctx)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if processed != 2 {
		t.Errorf("expected 2 processed documents, got %d", processed)
	}

	// Nothing left to process on a second pass.
	processed, errs = p.ProcessPending(ctx)
	if processed != 0 || len(errs) != 0 {
		t.Errorf("expected idle second pass, got %d processed, %v", processed, errs)
	}
}
