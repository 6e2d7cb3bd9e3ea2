package index

import "time"

// Posting records a term's raw occurrence count within one document.
type Posting struct {
	DocID string `json:"doc_id"`
	Count int    `json:"count"`
}

// PostingList is a set of postings for one term, ordered by document ID.
type PostingList []Posting

// Document is the metadata record stored for every indexed document. A
// record is immutable once added; replacing a document means remove then
// add.
type Document struct {
	Content     string    `json:"content"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	TotalTerms  int       `json:"total_terms"`
	UniqueTerms int       `json:"unique_terms"`
	AddedAt     time.Time `json:"added_at"`
}

// TermCount pairs a term with its document frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TermSample is one entry of the diagnostic term dump: a term and its raw
// per-document counts.
type TermSample struct {
	Term     string         `json:"term"`
	Postings map[string]int `json:"postings"`
}

// Stats are the aggregate counters reported by the index.
type Stats struct {
	TotalDocuments           int         `json:"total_documents"`
	TotalTerms               int         `json:"total_terms"`
	TotalDocumentOccurrences int         `json:"total_document_occurrences"`
	AverageTermsPerDocument  float64     `json:"average_terms_per_document"`
	MostCommonTerms          []TermCount `json:"most_common_terms"`
}
