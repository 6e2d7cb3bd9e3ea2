// Package model defines the request and response schemas of the HTTP API.
package model

import (
	"time"

	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/storage"
)

// UploadRequest is the body of POST /api/v1/documents.
type UploadRequest struct {
	DocID   string `json:"doc_id"`
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
}

// UploadResponse confirms a successful document upload.
type UploadResponse struct {
	Message        string `json:"message"`
	DocID          string `json:"doc_id"`
	IndexedTerms   int    `json:"indexed_terms"`
	TotalDocuments int    `json:"total_documents"`
}

// SearchHit is one ranked result row.
type SearchHit struct {
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title,omitempty"`
	Author  string  `json:"author,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query        string      `json:"query"`
	Results      []SearchHit `json:"results"`
	TotalResults int         `json:"total_results"`
	SearchTimeMs float64     `json:"search_time_ms"`
}

// DocumentResponse is the body of GET /api/v1/documents/{id}.
type DocumentResponse struct {
	DocID       string    `json:"doc_id"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Content     string    `json:"content"`
	TotalTerms  int       `json:"total_terms"`
	UniqueTerms int       `json:"unique_terms"`
	AddedAt     time.Time `json:"added_at"`
}

// DeleteResponse confirms a successful document removal.
type DeleteResponse struct {
	Message        string `json:"message"`
	DocID          string `json:"doc_id"`
	TotalDocuments int    `json:"total_documents"`
}

// IndexResponse is the body of GET /api/v1/index: aggregate counters,
// snapshot metadata, and the diagnostic term sample in insertion order.
type IndexResponse struct {
	Stats       index.Stats        `json:"stats"`
	Storage     storage.Info       `json:"storage"`
	SampleTerms []index.TermSample `json:"sample_terms"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
