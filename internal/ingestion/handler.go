package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/docflow/pkg/notify"
	"github.com/your-org/docflow/pkg/storage/objectstore"
	"github.com/your-org/docflow/pkg/xmldoc"
)

var (
	// ErrStoreRead marks a notification whose object could not be fetched.
	ErrStoreRead = errors.New("store read failed")
	// ErrSink marks a parsed document the sink refused.
	ErrSink = errors.New("sink delivery failed")
)

// ContainerSource selects where the handler takes the container to read from.
type ContainerSource int

const (
	// ContainerFromConfig reads every object from Config.TargetContainer.
	ContainerFromConfig ContainerSource = iota
	// ContainerFromNotification reads from the container named in the notification.
	ContainerFromNotification
)

// ParseContainerSource maps the configuration value to a ContainerSource.
func ParseContainerSource(s string) (ContainerSource, error) {
	switch s {
	case "", "config":
		return ContainerFromConfig, nil
	case "notification":
		return ContainerFromNotification, nil
	default:
		return 0, fmt.Errorf("unknown container source %q", s)
	}
}

// Status is the terminal state of one notification.
type Status string

const (
	StatusDelivered    Status = "delivered"
	StatusSkipped      Status = "skipped"
	StatusFetchFailed  Status = "fetch-failed"
	StatusDecodeFailed Status = "decode-failed"
	StatusSinkFailed   Status = "sink-failed"
)

// Config holds the environment-specific settings of a Handler.
type Config struct {
	TargetContainer string
	ContainerSource ContainerSource
	// KeyPattern is a doublestar glob; keys that do not match are skipped.
	KeyPattern string
	// MaxObjectBytes caps both the stored and the inflated payload size.
	MaxObjectBytes int64
	// InvocationTimeout bounds one Handle call; zero means no budget.
	InvocationTimeout time.Duration
}

type Params struct {
	Store  objectstore.Client
	Sink   Sink
	Logger *zap.Logger
	Config Config
}

// ItemResult reports what happened to one notification.
type ItemResult struct {
	Notification notify.Notification
	Container    string
	Status       Status
	Err          error
	Elements     int
}

// BatchResult holds per-notification outcomes in delivery order.
type BatchResult struct {
	Items []ItemResult
}

// Count returns how many items ended in status s.
func (b *BatchResult) Count(s Status) int {
	n := 0
	for _, it := range b.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the items that did not reach the sink and were not skipped.
func (b *BatchResult) Failures() []ItemResult {
	var out []ItemResult
	for _, it := range b.Items {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Handler fetches, decodes and delivers the objects named by creation notifications. It
// keeps no state between batches and may be shared by concurrent callers.
type Handler struct {
	store  objectstore.Client
	sink   Sink
	logger *zap.Logger
	cfg    Config
	tracer trace.Tracer
}

// NewHandler constructs a Handler.
func NewHandler(p Params) (*Handler, error) {
	if p.Store == nil {
		return nil, errors.New("object store is required")
	}
	if p.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Config.ContainerSource == ContainerFromConfig && p.Config.TargetContainer == "" {
		return nil, errors.New("target container is required when reading from the configured container")
	}
	if p.Config.KeyPattern != "" && !doublestar.ValidatePattern(p.Config.KeyPattern) {
		return nil, fmt.Errorf("invalid key pattern %q", p.Config.KeyPattern)
	}
	return &Handler{
		store:  p.Store,
		sink:   p.Sink,
		logger: p.Logger,
		cfg:    p.Config,
		tracer: otel.Tracer("github.com/your-org/docflow/internal/ingestion"),
	}, nil
}

// Handle processes batch sequentially in delivery order. A failing notification never
// stops its siblings; failures are reported in the result. The returned error is only
// set when the context ends mid-batch, in which case the remaining notifications are
// left unprocessed for redelivery.
func (h *Handler) Handle(ctx context.Context, batch []notify.Notification) (*BatchResult, error) {
	if h.cfg.InvocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.InvocationTimeout)
		defer cancel()
	}

	result := &BatchResult{Items: make([]ItemResult, 0, len(batch))}
	for i, n := range batch {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("batch interrupted after %d of %d notifications: %w", i, len(batch), err)
		}
		item := h.handleOne(ctx, n)
		result.Items = append(result.Items, item)
		if item.Err != nil && ctx.Err() != nil {
			return result, fmt.Errorf("batch interrupted at notification %d of %d: %w", i+1, len(batch), ctx.Err())
		}
	}
	return result, nil
}

// HandleBatch adapts Handle to notify.BatchHandler. Per-item failures are logged and
// swallowed so that one bad object cannot turn its batch into a poison message.
func (h *Handler) HandleBatch(ctx context.Context, batch []notify.Notification) error {
	result, err := h.Handle(ctx, batch)

	for _, it := range result.Failures() {
		h.logger.Warn("notification failed",
			zap.String("status", string(it.Status)),
			zap.String("container", it.Container),
			zap.String("key", it.Notification.Key),
			zap.String("sequencer", it.Notification.Sequencer),
			zap.Error(it.Err),
		)
	}
	h.logger.Info("batch processed",
		zap.Int("size", len(batch)),
		zap.Int("delivered", result.Count(StatusDelivered)),
		zap.Int("skipped", result.Count(StatusSkipped)),
		zap.Int("failed", len(result.Failures())),
	)
	return err
}

func (h *Handler) handleOne(ctx context.Context, n notify.Notification) ItemResult {
	container := h.cfg.TargetContainer
	if h.cfg.ContainerSource == ContainerFromNotification {
		container = n.Container
	}
	item := ItemResult{Notification: n, Container: container}

	ctx, span := h.tracer.Start(ctx, "handle-notification", trace.WithAttributes(
		attribute.String("notification.event", n.EventName),
		attribute.String("object.container", container),
		attribute.String("object.key", n.Key),
	))
	defer span.End()

	h.logger.Debug("notification received",
		zap.String("event", n.EventName),
		zap.String("container", container),
		zap.String("key", n.Key),
	)

	if !n.IsCreation() || !h.matchesKey(n.Key) {
		item.Status = StatusSkipped
		return item
	}

	raw, encoding, etag, err := h.fetch(ctx, container, n.Key)
	if err != nil {
		item.Status = StatusFetchFailed
		item.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, string(item.Status))
		return item
	}

	doc, err := h.decode(raw, encoding)
	if err != nil {
		item.Status = StatusDecodeFailed
		item.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, string(item.Status))
		return item
	}
	item.Elements = doc.Root.Count()

	if err := h.sink.Deliver(ctx, Delivery{
		Notification: n,
		Container:    container,
		Key:          n.Key,
		ETag:         etag,
		Document:     doc,
	}); err != nil {
		item.Status = StatusSinkFailed
		item.Err = fmt.Errorf("%w: %w", ErrSink, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(item.Status))
		return item
	}

	item.Status = StatusDelivered
	span.SetStatus(codes.Ok, string(item.Status))
	return item
}

func (h *Handler) matchesKey(key string) bool {
	if h.cfg.KeyPattern == "" {
		return true
	}
	ok, err := doublestar.Match(h.cfg.KeyPattern, key)
	return err == nil && ok
}

func (h *Handler) fetch(ctx context.Context, container, key string) ([]byte, string, string, error) {
	obj, err := h.store.Get(ctx, container, key)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: get %s/%s: %w", ErrStoreRead, container, key, err)
	}
	defer obj.Body.Close()

	raw, err := readLimited(obj.Body, h.cfg.MaxObjectBytes)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: read %s/%s: %w", ErrStoreRead, container, key, err)
	}
	return raw, obj.ContentEncoding, obj.ETag, nil
}

func (h *Handler) decode(raw []byte, encoding string) (*xmldoc.Document, error) {
	r, err := xmldoc.NewReader(encoding, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	payload, err := readLimited(r, h.cfg.MaxObjectBytes)
	if err != nil {
		return nil, fmt.Errorf("inflate %s payload: %w", encoding, err)
	}
	return xmldoc.Decode(payload)
}

var errTooLarge = errors.New("payload exceeds size limit")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", errTooLarge, limit)
	}
	return data, nil
}
