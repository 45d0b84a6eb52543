package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"

	"github.com/your-org/docflow/pkg/notify"
)

// Notifier is implemented by stores that can push their own creation notifications.
type Notifier interface {
	Notifications(container string) notify.Subscriber
}

// MinioClient talks to any S3-compatible endpoint.
type MinioClient struct {
	client *minio.Client
}

// NewMinio builds a client for MinIO or S3.
func NewMinio(cfg Config) (*MinioClient, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	return &MinioClient{client: cl}, nil
}

func (m *MinioClient) Put(ctx context.Context, container, key string, reader io.Reader, size int64, opts PutOptions) (PutResult, error) {
	info, err := m.client.PutObject(ctx, container, key, reader, size, minio.PutObjectOptions{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
		UserMetadata:    opts.Metadata,
	})
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{ETag: info.ETag, VersionID: info.VersionID}, nil
}

func (m *MinioClient) Get(ctx context.Context, container, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, container, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}

	// GetObject is lazy; Stat surfaces missing objects before the body is read.
	info, err := obj.Stat()
	if err != nil {
		obj.Close() //nolint:errcheck
		return nil, mapMinioError(err)
	}

	return &Object{
		Body:            obj,
		Size:            info.Size,
		ContentType:     info.ContentType,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
		ETag:            info.ETag,
	}, nil
}

func (m *MinioClient) Close() error {
	return nil
}

// Notifications listens on the bucket's own notification stream (MinIO only). An empty
// container listens on every bucket.
func (m *MinioClient) Notifications(container string) notify.Subscriber {
	return &minioSubscriber{client: m.client, bucket: container}
}

func mapMinioError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

type minioSubscriber struct {
	client *minio.Client
	bucket string
}

func (s *minioSubscriber) Subscribe(ctx context.Context, handle notify.BatchHandler) error {
	created := []string{"s3:ObjectCreated:*"}
	var events <-chan notification.Info
	if s.bucket == "" {
		events = s.client.ListenNotification(ctx, "", "", created)
	} else {
		events = s.client.ListenBucketNotification(ctx, s.bucket, "", "", created)
	}
	for info := range events {
		if info.Err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listen bucket notification: %w", info.Err)
		}

		batch, err := fromMinioEvents(info.Records)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		// The listen API has no acknowledgement, so a failed batch is not redelivered.
		if err := handle(ctx, batch); err != nil && ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

func fromMinioEvents(records []notification.Event) ([]notify.Notification, error) {
	batch := make([]notify.Notification, 0, len(records))
	for _, rec := range records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("unescape key %q: %w", rec.S3.Object.Key, err)
		}
		batch = append(batch, notify.Notification{
			EventName:   rec.EventName,
			Container:   rec.S3.Bucket.Name,
			Key:         key,
			Sequencer:   rec.S3.Object.Sequencer,
			Size:        rec.S3.Object.Size,
			ETag:        rec.S3.Object.ETag,
			ContentType: rec.S3.Object.ContentType,
		})
	}
	return batch, nil
}
