package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Style selects the formatting of assembled context.
type Style string

const (
	// StyleDetailed quotes each chunk in full under its source heading.
	StyleDetailed Style = "detailed"
	// StyleSummary truncates each chunk to a short excerpt.
	StyleSummary Style = "summary"
	// StyleBullet renders one bullet line per chunk.
	StyleBullet Style = "bullet"
)

// MaxContextChunks bounds the assembled context regardless of how many
// queries contributed results.
const MaxContextChunks = 8

// summaryExcerptChars is where StyleSummary cuts each chunk.
const summaryExcerptChars = 200

// BuildOptions tunes context assembly.
type BuildOptions struct {
	// MaxChunksPerQuery caps each individual query's contribution before
	// merging. Defaults to 3.
	MaxChunksPerQuery int `json:"max_chunks_per_query"`
	// Threshold drops chunks scoring below it.
	Threshold float64 `json:"threshold"`
	// Style selects the output format. Defaults to StyleDetailed.
	Style Style `json:"style,omitempty"`
	// DocTypes restricts sources to documents of the given types.
	DocTypes []string `json:"doc_types,omitempty"`
	// Mode selects the underlying search mode.
	Mode Mode `json:"mode,omitempty"`
	// UseVariations broadens each query through the assembler's
	// variation strategy.
	UseVariations bool `json:"use_variations"`
}

// ContextResult is assembled retrieval context plus its provenance.
type ContextResult struct {
	Context  string          `json:"context"`
	Sources  []Result        `json:"sources"`
	Metadata ContextMetadata `json:"metadata"`
}

// ContextMetadata describes how the context was built.
type ContextMetadata struct {
	TotalQueries    int      `json:"total_queries"`
	TotalChunks     int      `json:"total_chunks"`
	DocumentSources []string `json:"document_sources"`
	SearchTerms     []string `json:"search_terms"`
}

// Assembler turns one or more retrieval queries into a single formatted
// context block for prompting.
type Assembler struct {
	searcher *Searcher
	strategy VariationStrategy
}

// NewAssembler creates an assembler. A nil strategy disables variations
// even when requested.
func NewAssembler(searcher *Searcher, strategy VariationStrategy) *Assembler {
	if strategy == nil {
		strategy = NoVariations{}
	}
	return &Assembler{searcher: searcher, strategy: strategy}
}

// BuildContext searches every query, merges the results with duplicates
// removed, keeps the MaxContextChunks best chunks and formats them in the
// requested style. Identical inputs over an unchanged corpus produce
// identical output.
func (a *Assembler) BuildContext(ctx context.Context, queries []string, opts BuildOptions) (*ContextResult, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query is required")
	}
	if opts.MaxChunksPerQuery <= 0 {
		opts.MaxChunksPerQuery = 3
	}
	if opts.Style == "" {
		opts.Style = StyleDetailed
	}

	searchOpts := Options{
		Threshold:  opts.Threshold,
		MaxResults: opts.MaxChunksPerQuery,
		DocTypes:   opts.DocTypes,
		Mode:       opts.Mode,
	}

	var merged []Result
	seen := make(map[string]bool)
	for _, query := range queries {
		var results []Result
		var err error
		if opts.UseVariations {
			results, err = a.searcher.SearchWithVariations(ctx, query, searchOpts, a.strategy)
		} else {
			results, err = a.searcher.Search(ctx, query, searchOpts)
		}
		if err != nil {
			return nil, fmt.Errorf("searching %q: %w", query, err)
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
	if len(merged) > MaxContextChunks {
		merged = merged[:MaxContextChunks]
	}

	result := &ContextResult{
		Context: formatContext(merged, opts.Style),
		Sources: merged,
		Metadata: ContextMetadata{
			TotalQueries:    len(queries),
			TotalChunks:     len(merged),
			DocumentSources: documentTitles(merged),
			SearchTerms:     queries,
		},
	}
	if result.Sources == nil {
		result.Sources = []Result{}
	}
	return result, nil
}

func formatContext(results []Result, style Style) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	switch style {
	case StyleBullet:
		b.WriteString("Relevant knowledge:\n")
		for _, r := range results {
			b.WriteString(fmt.Sprintf("- %s (from %q)\n", excerpt(r.Content, summaryExcerptChars), r.DocumentTitle))
		}
	case StyleSummary:
		for i, r := range results {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("[%s] %s\n", r.DocumentTitle, excerpt(r.Content, summaryExcerptChars)))
		}
	default:
		for i, r := range results {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("Source: %s (%s, relevance %.2f)\n%s\n", r.DocumentTitle, r.DocumentType, r.Score, r.Content))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	// Back up to a rune boundary before looking for a word break, so a
	// multi-byte rune is never cut in half.
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := strings.LastIndex(text[:limit], " ")
	if cut <= 0 {
		cut = limit
	}
	return text[:cut] + "..."
}

func documentTitles(results []Result) []string {
	seen := make(map[string]bool)
	titles := []string{}
	for _, r := range results {
		if seen[r.DocumentTitle] {
			continue
		}
		seen[r.DocumentTitle] = true
		titles = append(titles, r.DocumentTitle)
	}
	return titles
}
