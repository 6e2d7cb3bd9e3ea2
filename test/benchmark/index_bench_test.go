// Package benchmark contains Go benchmarks for the inverted index, the
// tokenizer, and the search path, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/searcher"
)

const benchContent = "inverted index structures map terms onto posting lists so lookups stay independent of corpus size while term frequency scoring ranks matching documents"

// BenchmarkIndexAdd measures per-document insert throughput.
func BenchmarkIndexAdd(b *testing.B) {
	ix := index.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		ix.AddDocument(docID, benchContent, "benchmark title", "")
	}
}

// BenchmarkIndexRemove measures removal cost against a 10 000 document
// index.
func BenchmarkIndexRemove(b *testing.B) {
	ix := index.New()
	for i := 0; i < 10000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		id := fmt.Sprintf("bench-%d", i)
		ix.AddDocument(id, benchContent, "", "")
		b.StartTimer()
		ix.RemoveDocument(id)
	}
}

// BenchmarkSearch measures query latency over 10 000 documents.
func BenchmarkSearch(b *testing.B) {
	ix := index.New()
	for i := 0; i < 10000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}
	s := searcher.New(ix)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		results := s.Search(ctx, "posting lists frequency", 10)
		_ = results
	}
}

// BenchmarkSearchParallel measures concurrent read throughput.
func BenchmarkSearchParallel(b *testing.B) {
	ix := index.New()
	for i := 0; i < 10000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}
	s := searcher.New(ix)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			results := s.Search(ctx, "posting lists", 10)
			_ = results
		}
	})
}

// BenchmarkStats measures the aggregate statistics computation.
func BenchmarkStats(b *testing.B) {
	ix := index.New()
	for i := 0; i < 5000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Stats()
	}
}

// BenchmarkSnapshot measures the cost of taking a detached deep copy.
func BenchmarkSnapshot(b *testing.B) {
	ix := index.New()
	for i := 0; i < 5000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Snapshot()
	}
}
