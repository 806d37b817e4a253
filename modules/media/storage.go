package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrObjectNotFound is returned when no object is stored under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the storage port behind the media service.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	GetInfo(ctx context.Context, key string) (*ObjectInfo, error)
}

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Key         string
	Size        uint64
	ContentType string
	ModTime     time.Time
}

func contentTypeOf(headers nats.Header) string {
	if headers != nil {
		if ct := headers.Get("Content-Type"); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}

// JetStreamObjectStore stores objects in a NATS JetStream object store bucket.
type JetStreamObjectStore struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	store  jetstream.ObjectStore
	bucket string
}

// NewJetStreamObjectStore connects to NATS. Call Init before use.
func NewJetStreamObjectStore(natsURL, bucket string) (*JetStreamObjectStore, error) {
	conn, err := nats.Connect(natsURL, nats.Name("stylehub-media"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamObjectStore{conn: conn, js: js, bucket: bucket}, nil
}

// Init opens the bucket, creating it on first use.
func (s *JetStreamObjectStore) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucket)
	if err == nil {
		s.store = store
		return nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return fmt.Errorf("failed to open object store bucket: %w", err)
	}

	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucket,
		Description: "Product and review images",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}
	s.store = store
	return nil
}

func (s *JetStreamObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error) {
	meta := jetstream.ObjectMeta{
		Name:    key,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	info, err := s.store.Put(ctx, meta, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to store object: %w", err)
	}
	return &ObjectInfo{Key: info.Name, Size: info.Size, ContentType: contentType, ModTime: info.ModTime}, nil
}

func (s *JetStreamObjectStore) Get(ctx context.Context, key string) ([]byte, *ObjectInfo, error) {
	result, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, nil, mapStoreError(err, "get")
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object data: %w", err)
	}
	info, err := result.Info()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get object info: %w", err)
	}
	return data, toObjectInfo(info), nil
}

func (s *JetStreamObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return mapStoreError(err, "delete")
	}
	return nil
}

func (s *JetStreamObjectStore) GetInfo(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.store.GetInfo(ctx, key)
	if err != nil {
		return nil, mapStoreError(err, "get info for")
	}
	return toObjectInfo(info), nil
}

// IsConnected reports whether the NATS connection is up.
func (s *JetStreamObjectStore) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Close drains the NATS connection.
func (s *JetStreamObjectStore) Close() error {
	if s.conn != nil {
		return s.conn.Drain()
	}
	return nil
}

func toObjectInfo(info *jetstream.ObjectInfo) *ObjectInfo {
	return &ObjectInfo{
		Key:         info.Name,
		Size:        info.Size,
		ContentType: contentTypeOf(info.Headers),
		ModTime:     info.ModTime,
	}
}

func mapStoreError(err error, op string) error {
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return ErrObjectNotFound
	}
	return fmt.Errorf("failed to %s object: %w", op, err)
}
