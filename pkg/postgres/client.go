// Package postgres opens the document database used by the ingestion
// service and the builder's postgres source.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/resilience"
)

// Schema creates the documents table if it is missing. IDs are UUIDv7, so
// ordering by id is ingestion order.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id              UUID PRIMARY KEY,
	title           TEXT NOT NULL,
	body            TEXT NOT NULL,
	idempotency_key TEXT UNIQUE,
	status          TEXT NOT NULL DEFAULT 'PENDING',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	indexed_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status);
`

type Client struct {
	DB *sql.DB
}

// New connects, retrying the initial ping while the server comes up.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres ping", resilience.DefaultRetry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db}, nil
}

func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// InTx runs fn in a transaction, committing if it returns nil.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
