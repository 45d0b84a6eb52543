package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Consumer wraps a kafka-go Reader bound to a consumer group. Offsets are committed
// explicitly so a message is only acknowledged once its handler has returned.
type Consumer struct {
	reader       *kafkago.Reader
	maxAttempts  int
	retryBackoff time.Duration
}

// ConsumerConfig configures the reader behind a Consumer.
type ConsumerConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
	MaxWait  time.Duration

	// MaxAttempts bounds how often one message is handed to the handler before Run gives up.
	MaxAttempts  int
	RetryBackoff time.Duration
}

// NewConsumer constructs a Consumer from the given configuration.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Consumer{
		maxAttempts:  attempts,
		retryBackoff: cfg.RetryBackoff,
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
			MaxWait:  cfg.MaxWait,
		}),
	}
}

// MessageHandler processes one fetched message. Returning an error leaves the offset
// uncommitted.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

// Run fetches messages until ctx is cancelled. A failing message is retried up to
// MaxAttempts times; after that Run returns without committing, so the group redelivers
// from the last committed offset.
func (c *Consumer) Run(ctx context.Context, handle MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, msg, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("handle message at offset %d: %w", msg.Offset, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg kafkago.Message, handle MessageHandler) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = handle(ctx, msg); err == nil {
			return nil
		}
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryBackoff):
		}
	}
	return err
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
