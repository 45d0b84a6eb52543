package objectstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/your-org/docflow/pkg/notify"
)

const localEventName = "s3:ObjectCreated:Put"

// LocalStore is a single-node object store on top of badger. It emits creation
// notifications in-process once a write has been committed.
type LocalStore struct {
	db  *badger.DB
	seq atomic.Uint64

	mu   sync.Mutex
	subs map[*localSubscriber]struct{}
}

type localRecord struct {
	ContentType     string            `json:"content_type,omitempty"`
	ContentEncoding string            `json:"content_encoding,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	ETag            string            `json:"etag"`
	Body            []byte            `json:"body"`
}

// NewLocal opens a badger-backed store at path. An empty path keeps everything in memory.
func NewLocal(path string) (*LocalStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &LocalStore{db: db, subs: make(map[*localSubscriber]struct{})}, nil
}

func localKey(container, key string) []byte {
	return []byte("obj/" + container + "\x00" + key)
}

func (s *LocalStore) Put(_ context.Context, container, key string, reader io.Reader, _ int64, opts PutOptions) (PutResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return PutResult{}, fmt.Errorf("read body: %w", err)
	}

	sum := sha256.Sum256(body)
	rec := localRecord{
		ContentType:     opts.ContentType,
		ContentEncoding: opts.ContentEncoding,
		Metadata:        opts.Metadata,
		ETag:            hex.EncodeToString(sum[:]),
		Body:            body,
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return PutResult{}, fmt.Errorf("marshal object record: %w", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(localKey(container, key), value)
	}); err != nil {
		return PutResult{}, fmt.Errorf("write object: %w", err)
	}

	s.publish(notify.Notification{
		EventName:   localEventName,
		Container:   container,
		Key:         key,
		Sequencer:   fmt.Sprintf("%016X", s.seq.Add(1)),
		Size:        int64(len(body)),
		ETag:        rec.ETag,
		ContentType: rec.ContentType,
	})

	return PutResult{ETag: rec.ETag}, nil
}

func (s *LocalStore) Get(_ context.Context, container, key string) (*Object, error) {
	var rec localRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(localKey(container, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, container, key)
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	return &Object{
		Body:            io.NopCloser(bytes.NewReader(rec.Body)),
		Size:            int64(len(rec.Body)),
		ContentType:     rec.ContentType,
		ContentEncoding: rec.ContentEncoding,
		ETag:            rec.ETag,
	}, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Notifications registers a subscriber for writes to container. Writes are queued from
// this call on, even before Subscribe starts draining them.
func (s *LocalStore) Notifications(container string) notify.Subscriber {
	sub := &localSubscriber{
		store:     s,
		container: container,
		wake:      make(chan struct{}, 1),
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()
	return sub
}

func (s *LocalStore) publish(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.container == "" || sub.container == n.Container {
			sub.enqueue(n)
		}
	}
}

func (s *LocalStore) unsubscribe(sub *localSubscriber) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

type localSubscriber struct {
	store     *LocalStore
	container string
	wake      chan struct{}

	mu      sync.Mutex
	pending []notify.Notification
}

func (l *localSubscriber) enqueue(n notify.Notification) {
	l.mu.Lock()
	l.pending = append(l.pending, n)
	l.mu.Unlock()
	l.signal()
}

func (l *localSubscriber) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *localSubscriber) drain() []notify.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.pending
	l.pending = nil
	return batch
}

// requeue puts an unprocessed batch back in front of anything that arrived meanwhile.
func (l *localSubscriber) requeue(batch []notify.Notification) {
	l.mu.Lock()
	l.pending = append(batch, l.pending...)
	l.mu.Unlock()
	l.signal()
}

// Subscribe delivers everything queued so far as one batch, then waits for more. A batch
// whose handler fails is queued again and redelivered.
func (l *localSubscriber) Subscribe(ctx context.Context, handle notify.BatchHandler) error {
	defer l.store.unsubscribe(l)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}

		batch := l.drain()
		if len(batch) == 0 {
			continue
		}
		if err := handle(ctx, batch); err != nil {
			l.requeue(batch)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}
