package notify

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/docflow/pkg/kafka"
)

// KafkaSubscriber reads S3-style event messages from a topic, as published by a MinIO or
// S3 bucket notification target. Each message is delivered as one batch.
type KafkaSubscriber struct {
	consumer *kafka.Consumer
	logger   *zap.Logger
}

// NewKafkaSubscriber wraps an existing consumer.
func NewKafkaSubscriber(consumer *kafka.Consumer, logger *zap.Logger) *KafkaSubscriber {
	return &KafkaSubscriber{consumer: consumer, logger: logger}
}

// Subscribe implements Subscriber. Messages that are not valid event JSON are logged and
// committed; redelivering them could never succeed.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, handle BatchHandler) error {
	return s.consumer.Run(ctx, func(ctx context.Context, msg kafkago.Message) error {
		batch, err := ParseS3Event(msg.Value)
		if err != nil {
			s.logger.Warn("dropping unparseable notification message",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return nil
		}
		if len(batch) == 0 {
			return nil
		}
		return handle(ctx, batch)
	})
}

// Close releases the consumer.
func (s *KafkaSubscriber) Close() error {
	return s.consumer.Close()
}
