// Package notify carries object-creation notifications from a store to a consumer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Notification describes one completed write to the object store.
type Notification struct {
	EventName   string `json:"event_name"`
	Container   string `json:"container"`
	Key         string `json:"key"`
	Sequencer   string `json:"sequencer,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ETag        string `json:"etag,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// IsCreation reports whether the notification signals a new or overwritten object.
func (n Notification) IsCreation() bool {
	return strings.Contains(n.EventName, "ObjectCreated") || n.EventName == gcsFinalize
}

// BatchHandler consumes one delivered batch. A returned error means the batch was not
// processed and the transport should redeliver it.
type BatchHandler func(ctx context.Context, batch []Notification) error

// Subscriber delivers notification batches to a handler until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, handle BatchHandler) error
}

// S3Event is the S3 event message shape, also used by MinIO bucket notifications.
type S3Event struct {
	EventName string          `json:"EventName,omitempty"`
	Key       string          `json:"Key,omitempty"`
	Records   []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string `json:"eventName"`
	EventTime string `json:"eventTime,omitempty"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
			ARN  string `json:"arn,omitempty"`
		} `json:"bucket"`
		Object struct {
			Key         string `json:"key"`
			Size        int64  `json:"size,omitempty"`
			ETag        string `json:"eTag,omitempty"`
			ContentType string `json:"contentType,omitempty"`
			Sequencer   string `json:"sequencer,omitempty"`
		} `json:"object"`
	} `json:"s3"`
}

// ParseS3Event decodes an S3 event message into notifications in record order.
// Object keys are URL-decoded. A message without records (e.g. s3:TestEvent) yields an
// empty batch.
func ParseS3Event(data []byte) ([]Notification, error) {
	var ev S3Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal s3 event: %w", err)
	}

	batch := make([]Notification, 0, len(ev.Records))
	for i, rec := range ev.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("record %d: unescape key %q: %w", i, rec.S3.Object.Key, err)
		}
		batch = append(batch, Notification{
			EventName:   rec.EventName,
			Container:   rec.S3.Bucket.Name,
			Key:         key,
			Sequencer:   rec.S3.Object.Sequencer,
			Size:        rec.S3.Object.Size,
			ETag:        strings.Trim(rec.S3.Object.ETag, `"`),
			ContentType: rec.S3.Object.ContentType,
		})
	}
	return batch, nil
}

const gcsFinalize = "OBJECT_FINALIZE"

// GCSEvent is the JSON payload of a Cloud Storage Pub/Sub notification.
type GCSEvent struct {
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	ETag        string `json:"etag"`
}

// ParseGCSEvent decodes a Cloud Storage notification. The event type travels in the
// message attributes rather than the payload.
func ParseGCSEvent(data []byte, attrs map[string]string) (Notification, error) {
	var ev GCSEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Notification{}, fmt.Errorf("unmarshal gcs event: %w", err)
	}

	n := Notification{
		EventName:   attrs["eventType"],
		Container:   ev.Bucket,
		Key:         ev.Name,
		Sequencer:   ev.Generation,
		ETag:        ev.ETag,
		ContentType: ev.ContentType,
	}
	if n.Container == "" {
		n.Container = attrs["bucketId"]
	}
	if n.Key == "" {
		n.Key = attrs["objectId"]
	}
	if ev.Size != "" {
		size, err := strconv.ParseInt(ev.Size, 10, 64)
		if err != nil {
			return Notification{}, fmt.Errorf("parse gcs object size %q: %w", ev.Size, err)
		}
		n.Size = size
	}
	return n, nil
}
