package upload

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/docflow/pkg/storage/objectstore"
)

const defaultContentType = "application/octet-stream"

// Service routes uploads and writes them to the object store.
type Service struct {
	router *Router
	store  objectstore.Client
	logger *zap.Logger
	tracer trace.Tracer
}

type Params struct {
	Router *Router
	Store  objectstore.Client
	Logger *zap.Logger
}

// Result describes a stored upload.
type Result struct {
	Location
	ETag        string `json:"etag,omitempty"`
	VersionID   string `json:"version_id,omitempty"`
	ContentType string `json:"content_type"`
}

// NewService constructs an upload Service.
func NewService(p Params) *Service {
	return &Service{
		router: p.Router,
		store:  p.Store,
		logger: p.Logger,
		tracer: otel.Tracer("github.com/your-org/docflow/internal/upload"),
	}
}

// Upload routes req and forwards body unmodified in a single put. Routing errors are
// returned before the store is touched; put errors wrap ErrStoreWrite and are not retried.
func (s *Service) Upload(ctx context.Context, req Request, body io.Reader, size int64) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "upload", trace.WithAttributes(
		attribute.String("upload.mode", req.Mode.String()),
	))
	defer span.End()

	loc, err := s.router.Route(req)
	if err != nil {
		span.SetStatus(codes.Error, "rejected")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("object.container", loc.Container),
		attribute.String("object.key", loc.Key),
	)

	contentType := req.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	put, err := s.store.Put(ctx, loc.Container, loc.Key, body, size, objectstore.PutOptions{
		ContentType:     contentType,
		ContentEncoding: req.ContentEncoding,
		Metadata: map[string]string{
			"upload-mode": req.Mode.String(),
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return nil, fmt.Errorf("%w: put %s/%s: %w", ErrStoreWrite, loc.Container, loc.Key, err)
	}

	s.logger.Info("object stored",
		zap.String("mode", req.Mode.String()),
		zap.String("container", loc.Container),
		zap.String("key", loc.Key),
		zap.String("etag", put.ETag),
		zap.String("request_id", req.RequestID),
	)

	return &Result{Location: loc, ETag: put.ETag, VersionID: put.VersionID, ContentType: contentType}, nil
}
