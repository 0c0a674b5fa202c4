// Package consumer feeds documents published on the ingest topic into an
// index engine. The builder drains the topic in batches: it stops after a
// document limit or once the topic has been quiet for a while.
package consumer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/kafka"
)

// Source runs a consume loop, returning when ctx is done or the handler
// asks to stop. *kafka.Consumer is a Source.
type Source interface {
	Start(ctx context.Context) error
}

type IndexConsumer struct {
	add      loader.AddFunc
	db       *sql.DB
	maxDocs  int
	idle     time.Duration
	progress loader.ProgressFunc
	logger   *slog.Logger

	mu       sync.Mutex
	added    int
	lastSeen time.Time
}

type Options struct {
	// MaxDocs ends the drain after that many documents; 0 means no limit.
	MaxDocs int
	// Idle ends the drain when no message arrived for that long; 0 waits
	// until the context is done.
	Idle time.Duration
	// DB, when set, gets each document's status updated after indexing.
	DB       *sql.DB
	Progress loader.ProgressFunc
}

func New(add loader.AddFunc, opts Options) *IndexConsumer {
	return &IndexConsumer{
		add:      add,
		db:       opts.DB,
		maxDocs:  opts.MaxDocs,
		idle:     opts.Idle,
		progress: opts.Progress,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Handle is a kafka.MessageHandler for document events. Undecodable
// messages are skipped.
func (c *IndexConsumer) Handle(ctx context.Context, key []byte, value []byte) error {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()

	event, err := kafka.DecodeJSON[kafka.DocumentEvent](value)
	if err != nil {
		c.logger.Error("skipping undecodable ingest event", "key", string(key), "error", err)
		return nil
	}
	title := event.Title
	if title == "" {
		title = event.ID
	}
	if err := c.add(title, []byte(event.Body)); err != nil {
		c.updateStatus(ctx, event.ID, "FAILED")
		return fmt.Errorf("indexing document %s: %w", event.ID, err)
	}
	c.updateStatus(ctx, event.ID, "INDEXED")

	c.mu.Lock()
	c.added++
	n := c.added
	c.mu.Unlock()
	c.logger.Debug("document indexed", "doc_id", event.ID, "count", n)
	if c.progress != nil && n%loader.ProgressEvery == 0 {
		c.progress(n)
	}
	if c.maxDocs > 0 && n >= c.maxDocs {
		return kafka.ErrStop
	}
	return nil
}

// Drain runs src until the document limit, the idle timeout or ctx ends it,
// and returns the number of documents added.
func (c *IndexConsumer) Drain(ctx context.Context, src Source) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()

	if c.idle > 0 {
		go func() {
			ticker := time.NewTicker(max(c.idle/10, 10*time.Millisecond))
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.mu.Lock()
					quiet := time.Since(c.lastSeen)
					c.mu.Unlock()
					if quiet >= c.idle {
						c.logger.Info("ingest topic idle, ending drain", "idle", quiet.Round(time.Millisecond))
						cancel()
						return
					}
				}
			}
		}()
	}

	err := src.Start(ctx)
	c.mu.Lock()
	added := c.added
	c.mu.Unlock()
	return added, err
}

func (c *IndexConsumer) updateStatus(ctx context.Context, docID, status string) {
	if c.db == nil || docID == "" {
		return
	}
	_, err := c.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`,
		status, docID,
	)
	if err != nil {
		c.logger.Error("failed to update document status",
			"doc_id", docID,
			"status", status,
			"error", err,
		)
	}
}
