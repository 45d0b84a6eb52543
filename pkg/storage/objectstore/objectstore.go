package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned by Get when no object exists at the requested location.
var ErrNotFound = errors.New("object not found")

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// LocalPath is the badger directory for the local provider; empty keeps it in memory.
	LocalPath string
}

// PutOptions carries the attributes stored alongside an object's bytes.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// PutResult describes a completed write.
type PutResult struct {
	ETag      string
	VersionID string
}

// Object is a stored object opened for reading. Callers must close Body.
type Object struct {
	Body            io.ReadCloser
	Size            int64
	ContentType     string
	ContentEncoding string
	ETag            string
}

// Client represents the capabilities the upload and ingestion paths expect.
type Client interface {
	Put(ctx context.Context, container, key string, reader io.Reader, size int64, opts PutOptions) (PutResult, error)
	Get(ctx context.Context, container, key string) (*Object, error)
	Close() error
}

// New creates an object store client based on the given configuration.
func New(ctx context.Context, cfg Config) (Client, error) {
	var (
		client Client
		err    error
	)
	switch cfg.Provider {
	case "minio", "s3":
		client, err = NewMinio(cfg)
	case "gcs":
		client, err = NewGCS(ctx)
	case "local":
		client, err = NewLocal(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
