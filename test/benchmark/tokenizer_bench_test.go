package benchmark

import (
	"strings"
	"testing"

	"github.com/docsearch-io/docsearch/internal/index/tokenizer"
)

var tokenizerInputs = map[string]string{
	"short":       "quick search query",
	"sentence":    "The quick brown fox jumps over the lazy dog, and then runs off into the woods!",
	"punctuated":  "C++ and Rust (2024): a side-by-side comparison of memory-safety guarantees...",
	"long":        strings.Repeat("documents with many repeated terms and punctuation marks, numbers like 42, ", 50),
	"stop_heavy":  strings.Repeat("the and of a an in on at to for by with or but ", 20),
	"unicode":     "Zürich über straße naïve café résumé",
	"underscores": "snake_case_identifiers mixed_with regular words and_more_symbols",
}

func BenchmarkTokenize(b *testing.B) {
	for name, input := range tokenizerInputs {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(input)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(input)
			}
		})
	}
}

func BenchmarkTermCounts(b *testing.B) {
	tokens := tokenizer.Tokenize(tokenizerInputs["long"])
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tokenizer.TermCounts(tokens)
	}
}
