package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
)

type recorder struct {
	events []kafka.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, events ...kafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, events...)
	return nil
}

type memStore struct {
	byKey map[string]Document
}

func (m *memStore) Save(_ context.Context, doc Document) (Document, bool, error) {
	if doc.IdempotencyKey != "" {
		if prev, ok := m.byKey[doc.IdempotencyKey]; ok {
			return prev, false, nil
		}
		m.byKey[doc.IdempotencyKey] = doc
	}
	return doc, true, nil
}

func TestIngestPublishesEvent(t *testing.T) {
	rec := &recorder{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	p := New(nil, rec, m)

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Title: "t", Body: "the cat"})
	require.NoError(t, err)
	assert.Equal(t, ingestion.StatusPending, resp.Status)
	require.Len(t, rec.events, 1)

	ev := rec.events[0].Value.(kafka.DocumentEvent)
	assert.Equal(t, resp.DocumentID, ev.ID)
	assert.Equal(t, resp.DocumentID, rec.events[0].Key)
	assert.Equal(t, "the cat", ev.Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocsIngestedTotal.WithLabelValues("accepted")))
}

func TestIngestIdempotent(t *testing.T) {
	rec := &recorder{}
	p := New(&memStore{byKey: map[string]Document{}}, rec, nil)
	req := &ingestion.IngestRequest{Title: "t", Body: "b", IdempotencyKey: "k1"}

	first, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Len(t, rec.events, 1)
}

func TestIngestPublishFailure(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}

	_, err := New(nil, rec, nil).Ingest(context.Background(), &ingestion.IngestRequest{Title: "t", Body: "b"})
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	resp, err := New(&memStore{byKey: map[string]Document{}}, rec, nil).
		Ingest(context.Background(), &ingestion.IngestRequest{Title: "t", Body: "b"})
	require.NoError(t, err, "stored documents stay pending")
	assert.Equal(t, ingestion.StatusPending, resp.Status)
}
