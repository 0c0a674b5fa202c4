// Package ingestion accepts documents over HTTP and publishes them to the
// ingest topic, where the index builder's kafka source picks them up.
package ingestion

// IngestRequest is the JSON body of POST /api/v1/documents.
type IngestRequest struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
)
