package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
)

func TestParseCompression(t *testing.T) {
	tests := map[string]kafkago.Compression{
		"":       0,
		"none":   0,
		"gzip":   kafkago.Gzip,
		"Snappy": kafkago.Snappy,
		"lz4":    kafkago.Lz4,
		" zstd ": kafkago.Zstd,
	}
	for name, want := range tests {
		got, err := ParseCompression(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

func TestParseRequiredAcks(t *testing.T) {
	acks, err := ParseRequiredAcks("")
	require.NoError(t, err)
	assert.Equal(t, kafkago.RequireAll, acks)

	acks, err = ParseRequiredAcks("one")
	require.NoError(t, err)
	assert.Equal(t, kafkago.RequireOne, acks)

	_, err = ParseRequiredAcks("some")
	assert.Error(t, err)
}

func TestNewProducerValidation(t *testing.T) {
	_, err := NewProducer(ProducerConfig{Topic: "t"})
	assert.Error(t, err)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	_, err = NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Codec: "brotli"})
	assert.Error(t, err)

	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "docs", Codec: "zstd"})
	require.NoError(t, err)
	assert.Equal(t, "docs", p.Topic())
	assert.NoError(t, p.Close())
}

func TestMessageHeadersSorted(t *testing.T) {
	headers := messageHeaders(propagation.MapCarrier{"b": "2", "a": "1", "c": "3"})
	require.Len(t, headers, 3)
	assert.Equal(t, "a", headers[0].Key)
	assert.Equal(t, "b", headers[1].Key)
	assert.Equal(t, []byte("3"), headers[2].Value)
}
