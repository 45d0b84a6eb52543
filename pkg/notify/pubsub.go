package notify

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubSubscriber receives Cloud Storage notifications from a Pub/Sub subscription. Each
// message carries one object event and is delivered as a batch of one.
type PubSubSubscriber struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	logger       *zap.Logger
}

// NewPubSubSubscriber binds to an existing subscription.
func NewPubSubSubscriber(ctx context.Context, projectID, subscriptionID string, logger *zap.Logger) (*PubSubSubscriber, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubSubscriber{
		client:       client,
		subscription: client.Subscription(subscriptionID),
		logger:       logger,
	}, nil
}

// Subscribe implements Subscriber. A message is acked once the handler returns nil and
// nacked otherwise, so Pub/Sub redelivers it.
func (s *PubSubSubscriber) Subscribe(ctx context.Context, handle BatchHandler) error {
	s.logger.Info("listening for storage notifications", zap.String("subscription", s.subscription.ID()))

	err := s.subscription.Receive(ctx, func(msgCtx context.Context, msg *pubsub.Message) {
		n, err := ParseGCSEvent(msg.Data, msg.Attributes)
		if err != nil {
			s.logger.Warn("dropping unparseable notification message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			msg.Ack()
			return
		}

		if err := handle(msgCtx, []Notification{n}); err != nil {
			s.logger.Warn("batch not processed, requesting redelivery",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive from %s: %w", s.subscription.ID(), err)
	}
	return nil
}

// Close releases the Pub/Sub client.
func (s *PubSubSubscriber) Close() error {
	return s.client.Close()
}
