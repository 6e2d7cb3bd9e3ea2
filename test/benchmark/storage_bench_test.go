package benchmark

import (
	"fmt"
	"testing"

	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/storage"
)

// BenchmarkSnapshotSave measures the full save path: deep copy, JSON
// marshal, backup rotation, fsync, atomic rename.
func BenchmarkSnapshotSave(b *testing.B) {
	for _, docs := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			s, err := storage.New(b.TempDir(), 5)
			if err != nil {
				b.Fatal(err)
			}
			ix := index.New()
			for i := 0; i < docs; i++ {
				ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := s.Save(ix); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSnapshotLoad measures reconstruction from disk.
func BenchmarkSnapshotLoad(b *testing.B) {
	s, err := storage.New(b.TempDir(), 5)
	if err != nil {
		b.Fatal(err)
	}
	ix := index.New()
	for i := 0; i < 1000; i++ {
		ix.AddDocument(fmt.Sprintf("doc-%d", i), benchContent, "", "")
	}
	if err := s.Save(ix); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Load(); err != nil {
			b.Fatal(err)
		}
	}
}
