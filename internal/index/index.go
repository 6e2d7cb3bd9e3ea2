// Package index implements the in-memory inverted index at the core of the
// search service: term postings, document records, and per-term document
// frequencies behind a single read-write lock.
package index

import (
	"fmt"
	"sort"
	"sync"
	"time"

	dserrors "github.com/docsearch-io/docsearch/pkg/errors"

	"github.com/docsearch-io/docsearch/internal/index/tokenizer"
)

// Index owns the posting, document, and term-statistic maps. All access
// goes through its methods; readers may run concurrently, writers are
// exclusive. Documents are never mutated in place.
type Index struct {
	mu        sync.RWMutex
	postings  map[string]map[string]int
	termOrder []string
	docs      map[string]*Document
	termStats map[string]int
	totalDocs int
}

func New() *Index {
	return &Index{
		postings:  make(map[string]map[string]int),
		docs:      make(map[string]*Document),
		termStats: make(map[string]int),
	}
}

// AddDocument tokenizes content and indexes it under id. It rejects empty
// content and content that tokenizes to nothing, leaving the index
// untouched. Tokenization and counting happen before any state is mutated,
// so a rejected document never leaves partial postings behind.
//
// AddDocument does not check id uniqueness: indexing the same id twice
// corrupts document frequencies. Callers must check GetDocument first.
func (ix *Index) AddDocument(id, content, title, author string) error {
	tokens := tokenizer.Tokenize(content)
	if len(tokens) == 0 {
		return fmt.Errorf("document %q has no indexable terms: %w", id, dserrors.ErrInvalidInput)
	}
	counts := tokenizer.TermCounts(tokens)

	if title == "" {
		title = fmt.Sprintf("Document %s", id)
	}
	doc := &Document{
		Content:     content,
		Title:       title,
		Author:      author,
		TotalTerms:  len(tokens),
		UniqueTerms: len(counts),
		AddedAt:     time.Now().UTC(),
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Walk tokens in document order so termOrder reflects true first
	// occurrence, not map iteration order.
	for _, term := range tokens {
		docs, exists := ix.postings[term]
		if !exists {
			docs = make(map[string]int)
			ix.postings[term] = docs
			ix.termOrder = append(ix.termOrder, term)
		}
		docs[id]++
	}
	// Each document contributes exactly 1 to a term's document
	// frequency, regardless of in-document repetition.
	for term := range counts {
		ix.termStats[term]++
	}
	ix.docs[id] = doc
	ix.totalDocs++
	return nil
}

// RemoveDocument deletes id's record and every posting under it. Terms
// whose posting lists become empty are pruned entirely, including their
// document-frequency entries and their slot in the sample-term order.
func (ix *Index) RemoveDocument(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.docs[id]; !exists {
		return fmt.Errorf("document %q: %w", id, dserrors.ErrDocumentNotFound)
	}

	pruned := make(map[string]struct{})
	for term, docs := range ix.postings {
		if _, ok := docs[id]; !ok {
			continue
		}
		delete(docs, id)
		ix.termStats[term]--
		if len(docs) == 0 {
			delete(ix.postings, term)
			delete(ix.termStats, term)
			pruned[term] = struct{}{}
		}
	}
	if len(pruned) > 0 {
		kept := ix.termOrder[:0]
		for _, term := range ix.termOrder {
			if _, gone := pruned[term]; !gone {
				kept = append(kept, term)
			}
		}
		ix.termOrder = kept
	}

	delete(ix.docs, id)
	ix.totalDocs--
	return nil
}

// GetDocument returns the record stored for id. The returned record is
// shared and must not be modified.
func (ix *Index) GetDocument(id string) (*Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.docs[id]
	return doc, ok
}

// Postings returns a copy of the posting list for term, ordered by
// document ID. A term with no postings yields nil.
func (ix *Index) Postings(term string) PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	docs, exists := ix.postings[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for docID, count := range docs {
		result = append(result, Posting{DocID: docID, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// DocTotalTerms returns the post-stopword token count of the given
// document, or 0 if the document is not indexed.
func (ix *Index) DocTotalTerms(id string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if doc, ok := ix.docs[id]; ok {
		return doc.TotalTerms
	}
	return 0
}

// TotalDocuments returns the number of indexed documents.
func (ix *Index) TotalDocuments() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.totalDocs
}

// TotalTerms returns the number of distinct terms with at least one
// posting.
func (ix *Index) TotalTerms() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// Stats returns the aggregate counters, including the ten most common
// terms by document frequency (ties broken by term, ascending).
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	occurrences := 0
	for _, docs := range ix.postings {
		occurrences += len(docs)
	}

	top := make([]TermCount, 0, len(ix.termStats))
	for term, freq := range ix.termStats {
		top = append(top, TermCount{Term: term, Count: freq})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Term < top[j].Term
	})
	if len(top) > 10 {
		top = top[:10]
	}

	divisor := ix.totalDocs
	if divisor < 1 {
		divisor = 1
	}
	return Stats{
		TotalDocuments:           ix.totalDocs,
		TotalTerms:               len(ix.postings),
		TotalDocumentOccurrences: occurrences,
		AverageTermsPerDocument:  float64(len(ix.postings)) / float64(divisor),
		MostCommonTerms:          top,
	}
}

// SampleTerms returns up to limit terms with their raw per-document
// counts, in term insertion order. It is a diagnostic view, not a
// frequency ranking.
func (ix *Index) SampleTerms(limit int) []TermSample {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.termOrder)
	if limit >= 0 && limit < n {
		n = limit
	}
	sample := make([]TermSample, 0, n)
	for _, term := range ix.termOrder[:n] {
		docs := ix.postings[term]
		counts := make(map[string]int, len(docs))
		for docID, count := range docs {
			counts[docID] = count
		}
		sample = append(sample, TermSample{Term: term, Postings: counts})
	}
	return sample
}

// Clear resets every posting, record, statistic, and counter. It is
// idempotent.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.postings = make(map[string]map[string]int)
	ix.termOrder = nil
	ix.docs = make(map[string]*Document)
	ix.termStats = make(map[string]int)
	ix.totalDocs = 0
}
