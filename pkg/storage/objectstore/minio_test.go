package objectstore

import (
	"testing"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMinioEvents(t *testing.T) {
	var ev notification.Event
	ev.EventName = "s3:ObjectCreated:Put"
	ev.S3.Bucket.Name = "inbox"
	ev.S3.Object.Key = "orders%2F2024/a+b.xml"
	ev.S3.Object.Size = 12
	ev.S3.Object.Sequencer = "0001"

	batch, err := fromMinioEvents([]notification.Event{ev})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "inbox", batch[0].Container)
	assert.Equal(t, "orders/2024/a b.xml", batch[0].Key)
	assert.Equal(t, int64(12), batch[0].Size)
	assert.True(t, batch[0].IsCreation())

	ev.S3.Object.Key = "%zz"
	_, err = fromMinioEvents([]notification.Event{ev})
	assert.Error(t, err)
}

func TestNewMinioStripsScheme(t *testing.T) {
	client, err := NewMinio(Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", client.client.EndpointURL().Host)
}
