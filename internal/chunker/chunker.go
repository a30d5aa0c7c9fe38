// Package chunker splits document text into bounded, ordered segments.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTokens is the default token budget per chunk.
const DefaultMaxTokens = 500

// DefaultOverlapTokens is the default number of overlap tokens between chunks.
const DefaultOverlapTokens = 50

// Options controls how a document is split.
type Options struct {
	// MaxTokens is the approximate token budget per chunk.
	MaxTokens int
	// OverlapTokens is carried over from the end of one chunk into the next
	// so semantic context crosses chunk boundaries.
	OverlapTokens int
	// PreserveContext enables the overlap behaviour.
	PreserveContext bool
}

// DefaultOptions returns the standard chunking options.
func DefaultOptions() Options {
	return Options{
		MaxTokens:       DefaultMaxTokens,
		OverlapTokens:   DefaultOverlapTokens,
		PreserveContext: true,
	}
}

// Chunk is one contiguous fragment of a document's text.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// EstimateTokens approximates the token count of text. Rough estimate:
// 1 token ~= 4 characters.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Split divides text into chunks along paragraph boundaries. Paragraphs are
// accumulated until adding the next one would exceed the character budget
// (MaxTokens * 4). A chunk is never split mid-paragraph, so a document with
// no blank-line separators yields exactly one chunk regardless of size.
// Empty input yields no chunks.
func Split(text string, opts Options) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}

	maxChars := opts.MaxTokens * 4
	overlapChars := opts.OverlapTokens * 4

	var paragraphs []string
	for _, p := range paragraphSplit.Split(text, -1) {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []Chunk
	var current string

	flush := func() {
		content := strings.TrimSpace(current)
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Content:    content,
			Index:      len(chunks),
			TokenCount: EstimateTokens(content),
		})
	}

	for _, para := range paragraphs {
		if current != "" && len(current)+len(para) > maxChars {
			flush()
			if opts.PreserveContext && overlapChars > 0 && len(current) > overlapChars {
				current = tailOnRuneBoundary(current, overlapChars) + "\n\n" + para
			} else {
				current = para
			}
			continue
		}
		if current != "" {
			current += "\n\n" + para
		} else {
			current = para
		}
	}
	flush()

	return chunks
}

// tailOnRuneBoundary returns roughly the last n bytes of s without cutting
// a multi-byte rune.
func tailOnRuneBoundary(s string, n int) string {
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
