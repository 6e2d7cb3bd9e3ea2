package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	got := Tokenize("Hello World")
	want := []string{"hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize(%q) = %v, want %v", "Hello World", got, want)
	}
}

func TestTokenizeStripsPunctuation(t *testing.T) {
	got := Tokenize("Hello, World! It's C++ (v2.0)")
	want := []string{"hello", "world", "its", "c", "v20"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeKeepsUnderscoresAndDigits(t *testing.T) {
	got := Tokenize("snake_case var_1 2024")
	want := []string{"snake_case", "var_1", "2024"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeRemovesStopWords(t *testing.T) {
	got := Tokenize("the quick brown fox and a lazy dog in the barn")
	want := []string{"quick", "brown", "fox", "lazy", "dog", "barn"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeStopWordsOnly(t *testing.T) {
	if got := Tokenize("the and of a an"); len(got) != 0 {
		t.Fatalf("expected no terms, got %v", got)
	}
}

func TestTokenizeEmptyAndWhitespace(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n  \n"} {
		if got := Tokenize(input); len(got) != 0 {
			t.Errorf("Tokenize(%q) = %v, want empty", input, got)
		}
	}
}

func TestTokenizePunctuationOnly(t *testing.T) {
	if got := Tokenize("!!! ??? ... ---"); len(got) != 0 {
		t.Fatalf("expected no terms, got %v", got)
	}
}

func TestTokenizeNoStemming(t *testing.T) {
	got := Tokenize("running runs runner")
	want := []string{"running", "runs", "runner"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("terms must be indexed unmodified: got %v, want %v", got, want)
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	const input = "Programming in Go: concurrency, channels & goroutines!"
	first := Tokenize(input)
	for i := 0; i < 10; i++ {
		if got := Tokenize(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d produced %v, first run produced %v", i, got, first)
		}
	}
}

func TestTermCounts(t *testing.T) {
	counts := TermCounts([]string{"go", "rust", "go", "go", "rust"})
	if counts["go"] != 3 || counts["rust"] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 distinct terms, got %d", len(counts))
	}
}
