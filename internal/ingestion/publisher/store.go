package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/pkg/postgres"
)

// PostgresStore keeps documents in the documents table.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) Save(ctx context.Context, doc Document) (Document, bool, error) {
	created := true
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO documents (id, title, body, idempotency_key, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			doc.ID, doc.Title, doc.Body, nullable(doc.IdempotencyKey), doc.Status,
		).Scan(&id)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		created = false
		return tx.QueryRowContext(ctx,
			`SELECT id, title, status FROM documents WHERE idempotency_key = $1`,
			doc.IdempotencyKey,
		).Scan(&doc.ID, &doc.Title, &doc.Status)
	})
	if err != nil {
		return Document{}, false, fmt.Errorf("saving document: %w", err)
	}
	return doc, created, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
