package kafka

import "time"

// DocumentEvent carries one document from the ingestion service to the
// index builder.
type DocumentEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
}

// IndexCompleteEvent announces a freshly saved index file.
type IndexCompleteEvent struct {
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Name      string    `json:"name"`
	Documents int       `json:"documents"`
	SizeBytes int       `json:"size_bytes"`
	BuiltAt   time.Time `json:"built_at"`
}
