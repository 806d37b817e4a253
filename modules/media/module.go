package media

import (
	"context"
	"fmt"
	"log"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/go-monolith/mono"
)

// MediaModule owns the image store. Image bytes stay in process: the HTTP
// module calls Service directly instead of going over the bus.
type MediaModule struct {
	cfg     config.MediaConfig
	signer  *Signer
	store   ObjectStore
	conn    *JetStreamObjectStore
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*MediaModule)(nil)
var _ mono.HealthCheckableModule = (*MediaModule)(nil)

// Option configures the module.
type Option func(*MediaModule)

// WithStore replaces the JetStream store.
func WithStore(store ObjectStore) Option {
	return func(m *MediaModule) {
		m.store = store
	}
}

// NewModule creates the media module. Links are signed with secret and served
// under basePath.
func NewModule(cfg config.MediaConfig, secret, basePath string, opts ...Option) *MediaModule {
	m := &MediaModule{
		cfg:    cfg,
		signer: NewSigner(secret, basePath),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the module name.
func (m *MediaModule) Name() string {
	return "media"
}

// Start connects to the object store bucket.
func (m *MediaModule) Start(ctx context.Context) error {
	if m.store == nil {
		conn, err := NewJetStreamObjectStore(m.cfg.NATSURL, m.cfg.Bucket)
		if err != nil {
			return fmt.Errorf("failed to create object store: %w", err)
		}
		if err := conn.Init(ctx); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to initialize object store: %w", err)
		}
		m.conn = conn
		m.store = conn
	}
	m.service = NewService(m.store, m.signer, m.cfg.URLTTL)

	log.Printf("[media] Module started (NATS: %s, bucket: %s)", m.cfg.NATSURL, m.cfg.Bucket)
	return nil
}

// Stop closes the NATS connection.
func (m *MediaModule) Stop(_ context.Context) error {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			log.Printf("[media] Warning: failed to close NATS connection: %v", err)
		}
	}
	log.Println("[media] Module stopped")
	return nil
}

// Health reports the object store connection.
func (m *MediaModule) Health(_ context.Context) mono.HealthStatus {
	healthy := m.service != nil && (m.conn == nil || m.conn.IsConnected())
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"bucket": m.cfg.Bucket,
		},
	}
}

// Service returns the media service. It is nil before Start.
func (m *MediaModule) Service() *Service {
	return m.service
}

var errNotStarted = apperr.New(apperr.KindUpstream, "media storage is not available")

// Upload delegates to the running service.
func (m *MediaModule) Upload(ctx context.Context, prefix string, files []File, limit int) ([]string, error) {
	if m.service == nil {
		if len(files) == 0 {
			return nil, nil
		}
		return nil, errNotStarted
	}
	return m.service.Upload(ctx, prefix, files, limit)
}

// Delete delegates to the running service.
func (m *MediaModule) Delete(ctx context.Context, keys []string) int {
	if m.service == nil {
		return 0
	}
	return m.service.Delete(ctx, keys)
}

// URLs signs keys. Signing needs no storage, so it works before Start.
func (m *MediaModule) URLs(keys []string) map[string]string {
	if m.service == nil {
		return NewService(nil, m.signer, m.cfg.URLTTL).URLs(keys)
	}
	return m.service.URLs(keys)
}

// Open delegates to the running service.
func (m *MediaModule) Open(ctx context.Context, key, token string) ([]byte, *ObjectInfo, error) {
	if m.service == nil {
		return nil, nil, errNotStarted
	}
	return m.service.Open(ctx, key, token)
}
