package index

import (
	"fmt"
	"sort"
)

// Snapshot is the persistence-facing serialization of an Index: a
// self-contained copy of all postings, records, statistics, and counters.
// Version and SavedAt are stamped by the persistence layer on save.
type Snapshot struct {
	Version        string                    `json:"version"`
	SavedAt        string                    `json:"saved_at"`
	Index          map[string]map[string]int `json:"index"`
	Documents      map[string]*Document      `json:"documents"`
	TermStats      map[string]int            `json:"term_stats"`
	TermOrder      []string                  `json:"term_order,omitempty"`
	TotalDocuments int                       `json:"total_documents"`
	TotalTerms     int                       `json:"total_terms"`
}

// Snapshot deep-copies the index state. The copy is detached: later index
// mutations do not affect it.
func (ix *Index) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	postings := make(map[string]map[string]int, len(ix.postings))
	for term, docs := range ix.postings {
		cp := make(map[string]int, len(docs))
		for docID, count := range docs {
			cp[docID] = count
		}
		postings[term] = cp
	}
	docs := make(map[string]*Document, len(ix.docs))
	for id, doc := range ix.docs {
		cp := *doc
		docs[id] = &cp
	}
	stats := make(map[string]int, len(ix.termStats))
	for term, freq := range ix.termStats {
		stats[term] = freq
	}
	order := make([]string, len(ix.termOrder))
	copy(order, ix.termOrder)

	return &Snapshot{
		Index:          postings,
		Documents:      docs,
		TermStats:      stats,
		TermOrder:      order,
		TotalDocuments: ix.totalDocs,
		TotalTerms:     len(ix.postings),
	}
}

// Validate checks the snapshot's counters and statistics against its own
// maps. A snapshot that fails validation is treated as corrupt by the
// persistence layer.
func (s *Snapshot) Validate() error {
	if s.TotalDocuments != len(s.Documents) {
		return fmt.Errorf("total_documents %d does not match %d document records",
			s.TotalDocuments, len(s.Documents))
	}
	if s.TotalTerms != len(s.Index) {
		return fmt.Errorf("total_terms %d does not match %d indexed terms",
			s.TotalTerms, len(s.Index))
	}
	for term, docs := range s.Index {
		if len(docs) == 0 {
			return fmt.Errorf("term %q has an empty posting list", term)
		}
		if s.TermStats[term] != len(docs) {
			return fmt.Errorf("term %q document frequency %d does not match %d postings",
				term, s.TermStats[term], len(docs))
		}
	}
	// TermOrder is optional, but when present it must list exactly the
	// indexed terms. A stale entry would surface in term samples as a
	// term with no postings.
	if len(s.TermOrder) > 0 {
		if len(s.TermOrder) != len(s.Index) {
			return fmt.Errorf("term_order has %d entries for %d indexed terms",
				len(s.TermOrder), len(s.Index))
		}
		seen := make(map[string]bool, len(s.TermOrder))
		for _, term := range s.TermOrder {
			if _, ok := s.Index[term]; !ok {
				return fmt.Errorf("term_order entry %q is not an indexed term", term)
			}
			if seen[term] {
				return fmt.Errorf("term_order lists %q twice", term)
			}
			seen[term] = true
		}
	}
	return nil
}

// FromSnapshot reconstructs an Index equivalent to the one that produced
// the snapshot: same postings, records, statistics, and counters.
func FromSnapshot(s *Snapshot) (*Index, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	ix := New()
	for term, docs := range s.Index {
		cp := make(map[string]int, len(docs))
		for docID, count := range docs {
			cp[docID] = count
		}
		ix.postings[term] = cp
		ix.termStats[term] = s.TermStats[term]
	}
	for id, doc := range s.Documents {
		cp := *doc
		ix.docs[id] = &cp
	}
	ix.totalDocs = s.TotalDocuments

	// Snapshots written before term order was recorded fall back to a
	// lexicographic order so SampleTerms stays deterministic.
	if len(s.TermOrder) == len(s.Index) {
		ix.termOrder = append(ix.termOrder, s.TermOrder...)
	} else {
		for term := range ix.postings {
			ix.termOrder = append(ix.termOrder, term)
		}
		sort.Strings(ix.termOrder)
	}
	return ix, nil
}
