package search

import (
	"math"
	"regexp"
	"strings"

	"github.com/coachkit/knowledge-engine/internal/knowledge"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "to": true, "was": true, "were": true, "will": true, "with": true,
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if !stopwords[t] {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

type lexicalDoc struct {
	chunk knowledge.Chunk
	// vector holds the L2-normalized tf-idf weights, keyed by vocabulary id.
	vector map[int]float64
}

// lexicalIndex is an in-memory tf-idf index over the chunk corpus. Chunks
// and queries are projected into the same weighted term space and compared
// by cosine similarity, so scores land in [0, 1].
type lexicalIndex struct {
	vocabulary map[string]int
	idf        []float64
	docs       []lexicalDoc
}

func buildLexicalIndex(chunks []knowledge.Chunk) *lexicalIndex {
	idx := &lexicalIndex{vocabulary: make(map[string]int)}

	tokenized := make([][]string, len(chunks))
	docFreq := make(map[int]int)
	for i, c := range chunks {
		tokens := tokenize(c.Content)
		tokenized[i] = tokens
		seen := make(map[int]bool)
		for _, t := range tokens {
			id, ok := idx.vocabulary[t]
			if !ok {
				id = len(idx.vocabulary)
				idx.vocabulary[t] = id
			}
			if !seen[id] {
				seen[id] = true
				docFreq[id]++
			}
		}
	}

	// Smoothed idf keeps terms present in every chunk from zeroing out.
	total := float64(len(chunks))
	idx.idf = make([]float64, len(idx.vocabulary))
	for id, df := range docFreq {
		idx.idf[id] = math.Log((total+1)/(float64(df)+1)) + 1
	}

	idx.docs = make([]lexicalDoc, len(chunks))
	for i, c := range chunks {
		idx.docs[i] = lexicalDoc{chunk: c, vector: idx.weigh(tokenized[i])}
	}
	return idx
}

// weigh builds an L2-normalized tf-idf vector from tokens.
func (idx *lexicalIndex) weigh(tokens []string) map[int]float64 {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[int]int)
	for _, t := range tokens {
		if id, ok := idx.vocabulary[t]; ok {
			counts[id]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vector := make(map[int]float64, len(counts))
	var norm float64
	for id, n := range counts {
		w := (float64(n) / float64(len(tokens))) * idx.idf[id]
		vector[id] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}
	for id := range vector {
		vector[id] /= norm
	}
	return vector
}

// score returns every chunk with a nonzero cosine similarity to the query.
func (idx *lexicalIndex) score(query string) []Result {
	queryVec := idx.weigh(tokenize(query))
	if len(queryVec) == 0 {
		return nil
	}

	var results []Result
	for _, doc := range idx.docs {
		var dot float64
		for id, qw := range queryVec {
			if dw, ok := doc.vector[id]; ok {
				dot += qw * dw
			}
		}
		if dot <= 0 {
			continue
		}
		c := doc.chunk
		results = append(results, Result{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			Content:       c.Content,
			Score:         dot,
			DocumentTitle: c.DocumentTitle,
			DocumentType:  c.DocumentType,
			seq:           c.Seq,
		})
	}
	return results
}
