// Package tokenizer normalizes text into index terms. It lower-cases input,
// strips every rune that is not a word character or whitespace, splits on
// whitespace, and removes stop-words. It deliberately does no stemming:
// ranking depends on raw term counts over unmodified terms.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

// Tokenize breaks text into an ordered slice of lowercased terms with
// stop-words removed. It is pure: the same input always yields the same
// sequence. Empty or whitespace-only input yields an empty slice.
func Tokenize(text string) []string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)

	words := strings.Fields(normalized)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// TermCounts returns the raw occurrence count of each distinct term in
// tokens, preserving nothing about order.
func TermCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
