package search

import "strings"

// MaxVariations caps how many query forms a strategy may produce, original
// query included.
const MaxVariations = 3

// VariationStrategy generates alternative phrasings of a query to broaden
// retrieval recall. Implementations must return the original query first.
type VariationStrategy interface {
	Variations(query string) []string
}

// NoVariations passes the query through untouched.
type NoVariations struct{}

func (NoVariations) Variations(query string) []string {
	return []string{query}
}

// SynonymVariations rewrites known terms with domain synonyms, producing at
// most MaxVariations query forms.
type SynonymVariations struct {
	synonyms map[string][]string
}

// NewSynonymVariations builds a strategy from a term-to-synonyms table.
// Pass nil to use the default coaching vocabulary.
func NewSynonymVariations(synonyms map[string][]string) *SynonymVariations {
	if synonyms == nil {
		synonyms = defaultSynonyms
	}
	return &SynonymVariations{synonyms: synonyms}
}

var defaultSynonyms = map[string][]string{
	"goal":        {"objective", "target"},
	"goals":       {"objectives", "targets"},
	"strength":    {"talent", "capability"},
	"strengths":   {"talents", "capabilities"},
	"weakness":    {"growth area", "development area"},
	"weaknesses":  {"growth areas", "development areas"},
	"feedback":    {"assessment", "evaluation"},
	"improve":     {"develop", "grow"},
	"improvement": {"development", "growth"},
	"skill":       {"competency", "ability"},
	"skills":      {"competencies", "abilities"},
	"leadership":  {"management", "leading"},
	"team":        {"group", "colleagues"},
	"progress":    {"advancement", "momentum"},
	"challenge":   {"obstacle", "difficulty"},
	"challenges":  {"obstacles", "difficulties"},
}

func (s *SynonymVariations) Variations(query string) []string {
	variations := []string{query}
	lower := strings.ToLower(query)
	words := strings.Fields(lower)

	for _, word := range words {
		subs, ok := s.synonyms[word]
		if !ok {
			continue
		}
		for _, sub := range subs {
			if len(variations) >= MaxVariations {
				return variations
			}
			variant := strings.Replace(lower, word, sub, 1)
			if !contains(variations, variant) {
				variations = append(variations, variant)
			}
		}
	}
	return variations
}
