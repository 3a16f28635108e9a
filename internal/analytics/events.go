package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventIndex  EventType = "index"
)

// SearchEvent describes one answered search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	QueryType string    `json:"query_type"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent describes one committed or rejected add_documents batch.
type IndexEvent struct {
	Type      EventType `json:"type"`
	Origin    string    `json:"origin"`
	Added     int       `json:"added"`
	Skipped   int       `json:"skipped"`
	Rejected  bool      `json:"rejected"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
