package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
	EventAddDoc     EventType = "add_document"
	EventRemoveDoc  EventType = "remove_document"
	EventSnapshot   EventType = "snapshot_save"
)

// SearchEvent is emitted for every executed query.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// DocumentEvent is emitted when a document is added or removed.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	TokenCount int       `json:"token_count"`
	Timestamp  time.Time `json:"timestamp"`
}
