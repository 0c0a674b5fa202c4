// Package publisher records accepted documents and publishes them to the
// ingest topic. PostgreSQL is optional; with it, documents survive a
// failed publish and idempotency keys are honoured.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

type EventPublisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

type Document struct {
	ID             string
	Title          string
	Body           string
	IdempotencyKey string
	Status         string
}

// DocumentStore persists documents. Save returns the stored document and
// false when the idempotency key was already used.
type DocumentStore interface {
	Save(ctx context.Context, doc Document) (Document, bool, error)
}

type Publisher struct {
	store    DocumentStore
	producer EventPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New returns a Publisher. store and m may be nil.
func New(store DocumentStore, producer EventPublisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
	}
}

func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating document id: %w", err)
	}
	doc := Document{
		ID:             id.String(),
		Title:          req.Title,
		Body:           req.Body,
		IdempotencyKey: req.IdempotencyKey,
		Status:         ingestion.StatusPending,
	}

	if p.store != nil {
		stored, created, err := p.store.Save(ctx, doc)
		if err != nil {
			p.count("failed")
			return nil, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "storing document: %v", err)
		}
		if !created {
			p.count("duplicate")
			p.logger.Info("duplicate ingestion", "idempotency_key", req.IdempotencyKey, "existing_id", stored.ID)
			return &ingestion.IngestResponse{DocumentID: stored.ID, Status: stored.Status}, nil
		}
	}

	event := kafka.Event{
		Key: doc.ID,
		Value: kafka.DocumentEvent{
			ID:         doc.ID,
			Title:      doc.Title,
			Body:       doc.Body,
			IngestedAt: time.Now().UTC(),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		if p.store == nil {
			p.count("failed")
			return nil, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "publishing document: %v", err)
		}
		p.logger.Error("publish failed, document stays pending", "doc_id", doc.ID, "error", err)
	}
	p.count("accepted")
	return &ingestion.IngestResponse{DocumentID: doc.ID, Status: ingestion.StatusPending}, nil
}

func (p *Publisher) count(status string) {
	if p.metrics != nil {
		p.metrics.DocsIngestedTotal.WithLabelValues(status).Inc()
	}
}
