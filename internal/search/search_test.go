package search

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/coachkit/knowledge-engine/internal/chunker"
	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

func setupTestStore(t *testing.T) *knowledge.Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return knowledge.NewStore(database)
}

// seedDocument stores a document with one chunk per content string.
func seedDocument(t *testing.T, store *knowledge.Store, title, docType string, contents ...string) *knowledge.Document {
	t.Helper()
	doc, err := store.CreateDocument(context.Background(), knowledge.Document{
		Title:     title,
		Content:   strings.Join(contents, "\n\n"),
		DocType:   docType,
		Namespace: "test",
	})
	if err != nil {
		t.Fatalf("creating document: %v", err)
	}
	chunks := make([]knowledge.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = knowledge.Chunk{
			Content:    content,
			Index:      i,
			TokenCount: chunker.EstimateTokens(content),
		}
	}
	if err := store.ReplaceChunks(context.Background(), doc.ID, chunks); err != nil {
		t.Fatalf("storing chunks: %v", err)
	}
	return doc
}

func TestLexicalSearchRanksByRelevance(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, "Coaching Guide", "guide",
		"Setting clear goals is the foundation of every coaching engagement.",
		"Goals and objectives should be reviewed with the coachee every quarter, and goals must be measurable.",
		"Office equipment requests go through the facilities portal.")

	searcher := NewSearcher(store, nil)
	results, err := searcher.Search(context.Background(), "coaching goals", Options{MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered: score[%d]=%f > score[%d]=%f", i, results[i].Score, i-1, results[i-1].Score)
		}
	}
	for _, r := range results {
		if strings.Contains(r.Content, "facilities portal") {
			t.Errorf("unrelated chunk matched: %q", r.Content)
		}
		if r.DocumentTitle != "Coaching Guide" {
			t.Errorf("missing joined title, got %q", r.DocumentTitle)
		}
	}
}

func TestSearchThresholdAndCap(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, "Handbook", "guide",
		"Feedback conversations work best when scheduled promptly.",
		"Prompt feedback beats delayed feedback in almost every situation.",
		"Feedback is a gift.",
		"Unrelated note about parking.")

	searcher := NewSearcher(store, nil)

	all, err := searcher.Search(context.Background(), "feedback", Options{MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(all))
	}

	capped, err := searcher.Search(context.Background(), "feedback", Options{MaxResults: 2})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(capped))
	}
	if capped[0].ChunkID != all[0].ChunkID {
		t.Error("capping changed the top result")
	}

	strict, err := searcher.Search(context.Background(), "feedback", Options{Threshold: all[0].Score + 0.001, MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(strict) != 0 {
		t.Errorf("expected threshold above top score to drop everything, got %d results", len(strict))
	}
}

func TestSearchDocTypeFilter(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, "Leadership Notes", "notes",
		"Leadership development requires sustained practice.")
	seedDocument(t, store, "Leadership Framework", "framework",
		"Leadership competencies map to observable behaviors.")

	searcher := NewSearcher(store, nil)
	results, err := searcher.Search(context.Background(), "leadership", Options{
		MaxResults: 10,
		DocTypes:   []string{"framework"},
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].DocumentType != "framework" {
		t.Errorf("filter leaked doc type %q", results[0].DocumentType)
	}
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, "Duplicates", "notes",
		"resilience under pressure",
		"resilience under pressure")

	searcher := NewSearcher(store, nil)
	first, err := searcher.Search(context.Background(), "resilience", Options{MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 results, got %d", len(first))
	}
	if first[0].Score != first[1].Score {
		t.Fatalf("expected tied scores, got %f and %f", first[0].Score, first[1].Score)
	}
	for i := 0; i < 5; i++ {
		again, err := searcher.Search(context.Background(), "resilience", Options{MaxResults: 10})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if again[0].ChunkID != first[0].ChunkID || again[1].ChunkID != first[1].ChunkID {
			t.Fatal("tied results changed order between runs")
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	store := setupTestStore(t)
	searcher := NewSearcher(store, nil)
	if _, err := searcher.Search(context.Background(), "", Options{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestVectorSearchUnavailableWithoutEmbedder(t *testing.T) {
	store := setupTestStore(t)
	searcher := NewSearcher(store, nil)
	_, err := searcher.Search(context.Background(), "anything", Options{Mode: ModeVector})
	if err == nil {
		t.Error("expected error when no embedder is configured")
	}
}

// axisEmbedder projects text onto fixed keyword axes so similarity is
// fully determined by word overlap.
type axisEmbedder struct{}

var axes = []string{"goals", "feedback", "leadership"}

func (axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(axes))
		lower := strings.ToLower(text)
		var norm float64
		for j, axis := range axes {
			if strings.Contains(lower, axis) {
				vec[j] = 1
				norm++
			}
		}
		if norm == 0 {
			vec[0] = 1
			norm = 1
		}
		scale := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= scale
		}
		out[i] = vec
	}
	return out, nil
}

func (axisEmbedder) Dimensions() int { return len(axes) }
func (axisEmbedder) Name() string    { return "axis-test" }

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	store := setupTestStore(t)
	embedder := axisEmbedder{}

	doc := seedDocument(t, store, "Mixed Topics", "guide",
		"goals feedback leadership",
		"goals feedback",
		"leadership")

	// Attach embeddings from the configured model.
	chunks, err := store.ChunksForDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("loading chunks: %v", err)
	}
	for i := range chunks {
		vecs, _ := embedder.Embed(context.Background(), []string{chunks[i].Content})
		chunks[i].Embedding = vecs[0]
		chunks[i].EmbeddingModel = embedder.Name()
		chunks[i].EmbeddingDims = embedder.Dimensions()
	}
	if err := store.ReplaceChunks(context.Background(), doc.ID, chunks); err != nil {
		t.Fatalf("storing embedded chunks: %v", err)
	}

	searcher := NewSearcher(store, embedder)
	results, err := searcher.Search(context.Background(), "goals feedback", Options{
		Mode:       ModeVector,
		MaxResults: 10,
		Threshold:  0.1,
	})
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Content != "goals feedback" {
		t.Errorf("expected exact-overlap chunk first, got %q", results[0].Content)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("vector results not ordered at %d", i)
		}
	}
}

func TestVectorSearchSkipsForeignModelEmbeddings(t *testing.T) {
	store := setupTestStore(t)
	doc := seedDocument(t, store, "Old Embeddings", "guide", "goals and plans")

	chunks, err := store.ChunksForDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("loading chunks: %v", err)
	}
	chunks[0].Embedding = []float32{1, 0, 0}
	chunks[0].EmbeddingModel = "retired-model"
	if err := store.ReplaceChunks(context.Background(), doc.ID, chunks); err != nil {
		t.Fatalf("storing chunks: %v", err)
	}

	searcher := NewSearcher(store, axisEmbedder{})
	results, err := searcher.Search(context.Background(), "goals", Options{Mode: ModeVector, MaxResults: 10})
	if err != nil {
		t.Fatalf("vector search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected foreign-model embeddings to be excluded, got %d results", len(results))
	}
}

func TestSynonymVariations(t *testing.T) {
	strategy := NewSynonymVariations(nil)

	variations := strategy.Variations("improve my leadership skills")
	if len(variations) > MaxVariations {
		t.Fatalf("got %d variations, cap is %d", len(variations), MaxVariations)
	}
	if variations[0] != "improve my leadership skills" {
		t.Errorf("original query must come first, got %q", variations[0])
	}
	if len(variations) < 2 {
		t.Errorf("expected synonym rewrites, got %v", variations)
	}

	plain := strategy.Variations("zyx qwv")
	if len(plain) != 1 {
		t.Errorf("unknown terms should yield only the original, got %v", plain)
	}
}

func TestSearchWithVariationsDeduplicates(t *testing.T) {
	store := setupTestStore(t)
	seedDocument(t, store, "Growth Plan", "plan",
		"Talent development starts with honest strength assessment.",
		"A strength left unused is a missed opportunity.")

	searcher := NewSearcher(store, nil)
	results, err := searcher.SearchWithVariations(context.Background(), "strength", Options{MaxResults: 10}, NewSynonymVariations(nil))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.ChunkID] {
			t.Errorf("duplicate chunk %s in merged results", r.ChunkID)
		}
		seen[r.ChunkID] = true
	}
}

func TestRefreshPicksUpNewChunks(t *testing.T) {
	store := setupTestStore(t)
	searcher := NewSearcher(store, nil)

	results, err := searcher.Search(context.Background(), "onboarding", Options{MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty corpus, got %d results", len(results))
	}

	seedDocument(t, store, "Onboarding", "guide", "Onboarding checklists reduce ramp-up time.")
	if err := searcher.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	results, err = searcher.Search(context.Background(), "onboarding", Options{MaxResults: 10})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected new chunk after refresh, got %d results", len(results))
	}
}
