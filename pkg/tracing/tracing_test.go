package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResourceAttributes(t *testing.T) {
	got := ParseResourceAttributes(" service.namespace = docflow ,team=ingest,broken,=nokey,empty=")
	assert.Equal(t, map[string]string{
		"service.namespace": "docflow",
		"team":              "ingest",
		"empty":             "",
	}, got)

	assert.Empty(t, ParseResourceAttributes(""))
}

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "docflow"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
