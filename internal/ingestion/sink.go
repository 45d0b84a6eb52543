package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/docflow/pkg/notify"
	"github.com/your-org/docflow/pkg/xmldoc"
)

// Delivery is a successfully parsed object handed to a Sink.
type Delivery struct {
	Notification notify.Notification
	Container    string
	Key          string
	ETag         string
	Document     *xmldoc.Document
}

// Sink receives parsed documents. Deliveries may repeat for the same object because
// notifications are at-least-once.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

// LogSink writes every parsed document to the logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(_ context.Context, d Delivery) error {
	s.logger.Info("document parsed",
		zap.String("container", d.Container),
		zap.String("key", d.Key),
		zap.String("event", d.Notification.EventName),
		zap.String("root", d.Document.Root.Name),
		zap.Int("elements", d.Document.Root.Count()),
		zap.Any("document", d.Document),
	)
	return nil
}

// Publisher is the subset of kafka.Producer a KafkaSink needs.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
}

// KafkaSink publishes every parsed document as a DocumentEvent.
type KafkaSink struct {
	publisher Publisher
	now       func() time.Time
}

func NewKafkaSink(publisher Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher, now: time.Now}
}

func (s *KafkaSink) Deliver(ctx context.Context, d Delivery) error {
	event := DocumentEvent{
		ID:        uuid.NewString(),
		EventName: d.Notification.EventName,
		Container: d.Container,
		Key:       d.Key,
		ETag:      d.ETag,
		Sequencer: d.Notification.Sequencer,
		Document:  d.Document,
		ParsedAt:  s.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal document event: %w", err)
	}

	headers := map[string]string{
		"event_type": DocumentParsedEventType,
		"container":  d.Container,
	}

	// Keyed by object so every version of one object lands on the same partition.
	if err := s.publisher.Publish(ctx, []byte(d.Container+"/"+d.Key), payload, headers); err != nil {
		return fmt.Errorf("publish document event: %w", err)
	}
	return nil
}
