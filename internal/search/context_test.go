package search

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func seedCorpus(t *testing.T, count int) *Searcher {
	t.Helper()
	store := setupTestStore(t)
	topics := []string{"goals", "feedback", "leadership", "resilience"}
	for i := 0; i < count; i++ {
		topic := topics[i%len(topics)]
		seedDocument(t, store, fmt.Sprintf("Doc %d", i), "guide",
			fmt.Sprintf("Chunk %d covers %s practice in depth with concrete examples.", i, topic))
	}
	return NewSearcher(store, nil)
}

func TestBuildContextMergesAndDeduplicates(t *testing.T) {
	searcher := seedCorpus(t, 4)
	assembler := NewAssembler(searcher, nil)

	// Overlapping queries hit the same chunks; each chunk may appear once.
	result, err := assembler.BuildContext(context.Background(),
		[]string{"goals practice", "practice examples"},
		BuildOptions{MaxChunksPerQuery: 10})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, s := range result.Sources {
		if seen[s.ChunkID] {
			t.Errorf("chunk %s appears twice in sources", s.ChunkID)
		}
		seen[s.ChunkID] = true
	}
	if result.Metadata.TotalQueries != 2 {
		t.Errorf("expected 2 queries in metadata, got %d", result.Metadata.TotalQueries)
	}
	if result.Metadata.TotalChunks != len(result.Sources) {
		t.Errorf("metadata chunk count %d does not match sources %d", result.Metadata.TotalChunks, len(result.Sources))
	}
}

func TestBuildContextGlobalCap(t *testing.T) {
	searcher := seedCorpus(t, 20)
	assembler := NewAssembler(searcher, nil)

	result, err := assembler.BuildContext(context.Background(),
		[]string{"practice", "examples", "depth", "concrete"},
		BuildOptions{MaxChunksPerQuery: 10})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(result.Sources) > MaxContextChunks {
		t.Errorf("sources exceed global cap: %d > %d", len(result.Sources), MaxContextChunks)
	}
	if result.Metadata.TotalChunks > MaxContextChunks {
		t.Errorf("metadata exceeds global cap: %d", result.Metadata.TotalChunks)
	}
}

func TestBuildContextDeterministic(t *testing.T) {
	searcher := seedCorpus(t, 12)
	assembler := NewAssembler(searcher, nil)

	queries := []string{"leadership practice", "feedback examples"}
	first, err := assembler.BuildContext(context.Background(), queries, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := assembler.BuildContext(context.Background(), queries, BuildOptions{})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if again.Context != first.Context {
			t.Fatal("context output changed between identical runs")
		}
		if len(again.Sources) != len(first.Sources) {
			t.Fatal("source count changed between identical runs")
		}
		for j := range again.Sources {
			if again.Sources[j].ChunkID != first.Sources[j].ChunkID {
				t.Fatal("source order changed between identical runs")
			}
		}
	}
}

func TestBuildContextStyles(t *testing.T) {
	searcher := seedCorpus(t, 3)
	assembler := NewAssembler(searcher, nil)
	queries := []string{"practice"}

	detailed, err := assembler.BuildContext(context.Background(), queries, BuildOptions{Style: StyleDetailed})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(detailed.Context, "Source:") {
		t.Errorf("detailed style missing source headings:\n%s", detailed.Context)
	}

	bullet, err := assembler.BuildContext(context.Background(), queries, BuildOptions{Style: StyleBullet})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(bullet.Context, "- ") {
		t.Errorf("bullet style missing bullets:\n%s", bullet.Context)
	}

	summary, err := assembler.BuildContext(context.Background(), queries, BuildOptions{Style: StyleSummary})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	for _, line := range strings.Split(summary.Context, "\n") {
		if len(line) > summaryExcerptChars+60 {
			t.Errorf("summary line exceeds excerpt budget: %d chars", len(line))
		}
	}
}

func TestBuildContextEmptyCorpus(t *testing.T) {
	store := setupTestStore(t)
	assembler := NewAssembler(NewSearcher(store, nil), nil)

	result, err := assembler.BuildContext(context.Background(), []string{"anything"}, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if result.Context != "" {
		t.Errorf("expected empty context, got %q", result.Context)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(result.Sources))
	}
}

func TestBuildContextRequiresQueries(t *testing.T) {
	store := setupTestStore(t)
	assembler := NewAssembler(NewSearcher(store, nil), nil)
	if _, err := assembler.BuildContext(context.Background(), nil, BuildOptions{}); err == nil {
		t.Error("expected error for empty query list")
	}
}

func TestExcerptCutsOnWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := excerpt(long, 50)
	if len(got) > 54 {
		t.Errorf("excerpt too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis, got %q", got)
	}
	if strings.Contains(got, "wor...") && !strings.Contains(got, "word...") {
		t.Errorf("excerpt cut mid-word: %q", got)
	}
}

func TestExcerptKeepsValidUTF8(t *testing.T) {
	// No spaces, so the cut lands at the limit itself: it must still fall
	// on a rune boundary.
	long := strings.Repeat("自己評価", 50)
	for limit := 1; limit <= 20; limit++ {
		got := excerpt(long, limit)
		if !utf8.ValidString(got) {
			t.Errorf("limit %d produced invalid UTF-8: %q", limit, got)
		}
	}
}
