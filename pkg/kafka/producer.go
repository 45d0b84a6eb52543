package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Producer publishes keyed messages to one topic. Messages with the same key land on the
// same partition.
type Producer struct {
	writer *kafkago.Writer
}

// ProducerConfig configures the writer behind a Producer. Codec and Acks take the textual
// forms accepted by ParseCompression and ParseRequiredAcks.
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	Codec        string
	Acks         string
	MaxAttempts  int
}

// NewProducer validates cfg and builds a Producer. No connection is made until the first
// Publish.
func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka producer: topic is required")
	}
	codec, err := ParseCompression(cfg.Codec)
	if err != nil {
		return nil, err
	}
	acks, err := ParseRequiredAcks(cfg.Acks)
	if err != nil {
		return nil, err
	}

	return &Producer{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafkago.Hash{},
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: acks,
			Compression:  codec,
			MaxAttempts:  cfg.MaxAttempts,
		},
	}, nil
}

// Topic returns the topic messages are written to.
func (p *Producer) Topic() string {
	return p.writer.Topic
}

// Publish writes one message and blocks until the configured acks arrive. The span
// context of ctx travels in the message headers next to the given ones.
func (p *Producer) Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		carrier.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: messageHeaders(carrier),
	})
}

// messageHeaders returns the carrier in key order so equal header sets encode equally.
func messageHeaders(carrier propagation.MapCarrier) []kafkago.Header {
	keys := carrier.Keys()
	slices.Sort(keys)
	out := make([]kafkago.Header, 0, len(keys))
	for _, k := range keys {
		out = append(out, kafkago.Header{Key: k, Value: []byte(carrier.Get(k))})
	}
	return out
}

// Close flushes pending batches and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ParseCompression maps a codec name to its kafka-go value. Empty and "none" disable
// compression.
func ParseCompression(name string) (kafkago.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafkago.Gzip, nil
	case "snappy":
		return kafkago.Snappy, nil
	case "lz4":
		return kafkago.Lz4, nil
	case "zstd":
		return kafkago.Zstd, nil
	default:
		return 0, fmt.Errorf("kafka: unknown compression codec %q", name)
	}
}

// ParseRequiredAcks maps "all", "one" or "none" to kafka-go acks. Empty means "all".
func ParseRequiredAcks(name string) (kafkago.RequiredAcks, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all", "-1":
		return kafkago.RequireAll, nil
	case "one", "1":
		return kafkago.RequireOne, nil
	case "none", "0":
		return kafkago.RequireNone, nil
	default:
		return 0, fmt.Errorf("kafka: unknown required acks %q", name)
	}
}
