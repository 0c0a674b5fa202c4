// Package validator checks ingestion requests before anything is stored.
package validator

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion"
)

const (
	MaxTitleLength          = 1024
	MaxBodyLength           = 1 << 20
	MaxIdempotencyKeyLength = 255
)

// ValidationError maps field names to what is wrong with them.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest enforces the length limits in bytes. Bodies must
// be valid UTF-8 so that every n-gram index can take them.
func ValidateIngestRequest(req *ingestion.IngestRequest) error {
	errs := make(map[string]string)

	switch title := strings.TrimSpace(req.Title); {
	case title == "":
		errs["title"] = "title is required"
	case len(req.Title) > MaxTitleLength:
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", MaxTitleLength)
	}

	switch {
	case strings.TrimSpace(req.Body) == "":
		errs["body"] = "body is required"
	case len(req.Body) > MaxBodyLength:
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", MaxBodyLength)
	case !utf8.ValidString(req.Body):
		errs["body"] = "body must be valid UTF-8"
	}

	if len(req.IdempotencyKey) > MaxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d bytes", MaxIdempotencyKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
