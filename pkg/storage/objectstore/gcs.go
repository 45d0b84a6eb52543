package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
)

// GCSClient stores objects in Google Cloud Storage using application default credentials.
type GCSClient struct {
	client *storage.Client
}

// NewGCS builds a Cloud Storage client.
func NewGCS(ctx context.Context) (*GCSClient, error) {
	cl, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return &GCSClient{client: cl}, nil
}

func (g *GCSClient) Put(ctx context.Context, container, key string, reader io.Reader, _ int64, opts PutOptions) (PutResult, error) {
	w := g.client.Bucket(container).Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.ContentEncoding = opts.ContentEncoding
	w.Metadata = opts.Metadata

	if _, err := io.Copy(w, reader); err != nil {
		w.Close() //nolint:errcheck
		return PutResult{}, fmt.Errorf("write gcs object: %w", err)
	}
	if err := w.Close(); err != nil {
		return PutResult{}, fmt.Errorf("finalize gcs object: %w", err)
	}

	attrs := w.Attrs()
	return PutResult{ETag: attrs.Etag, VersionID: strconv.FormatInt(attrs.Generation, 10)}, nil
}

func (g *GCSClient) Get(ctx context.Context, container, key string) (*Object, error) {
	// Read the stored bytes as-is; content encodings are handled by the decoder.
	r, err := g.client.Bucket(container).Object(key).ReadCompressed(true).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, container, key)
		}
		return nil, err
	}

	return &Object{
		Body:            r,
		Size:            r.Attrs.Size,
		ContentType:     r.Attrs.ContentType,
		ContentEncoding: r.Attrs.ContentEncoding,
		ETag:            strconv.FormatInt(r.Attrs.Generation, 10),
	}, nil
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
