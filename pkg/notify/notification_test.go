package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minioEvent = `{
  "EventName": "s3:ObjectCreated:Put",
  "Key": "docflow-inbox/orders/2024%2F01/order+1.xml",
  "Records": [
    {
      "eventName": "s3:ObjectCreated:Put",
      "eventTime": "2024-01-02T03:04:05.000Z",
      "s3": {
        "bucket": {"name": "docflow-inbox", "arn": "arn:aws:s3:::docflow-inbox"},
        "object": {
          "key": "orders/2024%2F01/order+1.xml",
          "size": 58,
          "eTag": "\"d41d8cd98f00b204e9800998ecf8427e\"",
          "contentType": "application/xml",
          "sequencer": "17A2B3C4D5E6F708"
        }
      }
    },
    {
      "eventName": "s3:ObjectRemoved:Delete",
      "s3": {"bucket": {"name": "docflow-inbox"}, "object": {"key": "old.xml"}}
    }
  ]
}`

func TestParseS3Event(t *testing.T) {
	batch, err := ParseS3Event([]byte(minioEvent))
	require.NoError(t, err)
	require.Len(t, batch, 2)

	first := batch[0]
	assert.Equal(t, "docflow-inbox", first.Container)
	assert.Equal(t, "orders/2024/01/order 1.xml", first.Key)
	assert.Equal(t, int64(58), first.Size)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", first.ETag)
	assert.Equal(t, "application/xml", first.ContentType)
	assert.Equal(t, "17A2B3C4D5E6F708", first.Sequencer)
	assert.True(t, first.IsCreation())

	assert.Equal(t, "old.xml", batch[1].Key)
	assert.False(t, batch[1].IsCreation())
}

func TestParseS3EventWithoutRecords(t *testing.T) {
	batch, err := ParseS3Event([]byte(`{"Service":"Amazon S3","Event":"s3:TestEvent"}`))
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestParseS3EventErrors(t *testing.T) {
	_, err := ParseS3Event([]byte(`not json`))
	assert.ErrorContains(t, err, "unmarshal s3 event")

	_, err = ParseS3Event([]byte(`{"Records":[{"eventName":"s3:ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{"key":"bad%zz"}}}]}`))
	assert.ErrorContains(t, err, "record 0")
}

func TestParseGCSEvent(t *testing.T) {
	payload := `{"name":"orders/1.xml","bucket":"docflow-inbox","generation":"1700000000000001","contentType":"application/xml","size":"120","etag":"CKih16GjycICEAE="}`
	attrs := map[string]string{
		"eventType": "OBJECT_FINALIZE",
		"bucketId":  "docflow-inbox",
		"objectId":  "orders/1.xml",
	}

	n, err := ParseGCSEvent([]byte(payload), attrs)
	require.NoError(t, err)
	assert.Equal(t, Notification{
		EventName:   "OBJECT_FINALIZE",
		Container:   "docflow-inbox",
		Key:         "orders/1.xml",
		Sequencer:   "1700000000000001",
		Size:        120,
		ETag:        "CKih16GjycICEAE=",
		ContentType: "application/xml",
	}, n)
	assert.True(t, n.IsCreation())
}

func TestParseGCSEventFallsBackToAttributes(t *testing.T) {
	n, err := ParseGCSEvent([]byte(`{}`), map[string]string{
		"eventType": "OBJECT_DELETE",
		"bucketId":  "b",
		"objectId":  "k.xml",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", n.Container)
	assert.Equal(t, "k.xml", n.Key)
	assert.False(t, n.IsCreation())

	_, err = ParseGCSEvent([]byte(`{"size":"big"}`), nil)
	assert.ErrorContains(t, err, "parse gcs object size")
}
