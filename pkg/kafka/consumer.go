// Package kafka publishes and consumes the JSON events exchanged by the
// ingestion service, the index builder and the search service, on top of
// segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
)

// ErrStop returned by a MessageHandler commits the message and ends Start
// without error.
var ErrStop = errors.New("stop consuming")

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type ConsumerOptions struct {
	// GroupID overrides the configured consumer group.
	GroupID string
	// FromStart makes a new group begin at the oldest retained message
	// instead of the newest.
	FromStart bool
}

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

func NewConsumer(cfg config.KafkaConfig, topic string, opts ConsumerOptions, handler MessageHandler) *Consumer {
	group := cfg.ConsumerGroup
	if opts.GroupID != "" {
		group = opts.GroupID
	}
	start := kafka.LastOffset
	if opts.FromStart {
		start = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: start,
	})
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", group),
		handler: handler,
	}
}

// Start fetches and handles messages until ctx is done or the handler
// returns ErrStop. A message is committed only after its handler succeeds.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		err = c.handler(ctx, msg.Key, msg.Value)
		stop := errors.Is(err, ErrStop)
		if err != nil && !stop {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message", "offset", msg.Offset, "error", err)
		}
		if stop {
			c.logger.Info("consumer stopped by handler", "offset", msg.Offset)
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
