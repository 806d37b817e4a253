package idempotency

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// IdempotencyModule provides the Idempotency-Key middleware.
type IdempotencyModule struct {
	client     *redis.Client
	ttl        time.Duration
	userLocal  string
	logger     *slog.Logger
	middleware *Middleware
}

var _ mono.Module = (*IdempotencyModule)(nil)
var _ mono.HealthCheckableModule = (*IdempotencyModule)(nil)

// NewModule creates the module. userLocal names the fiber.Ctx local that
// holds the authenticated user id.
func NewModule(client *redis.Client, ttl time.Duration, userLocal string, logger *slog.Logger) *IdempotencyModule {
	m := &IdempotencyModule{client: client, ttl: ttl, userLocal: userLocal, logger: logger}
	if client != nil {
		m.middleware = NewMiddleware(NewStore(client, ttl), userLocal, logger)
	}
	return m
}

func (m *IdempotencyModule) Name() string {
	return "idempotency"
}

func (m *IdempotencyModule) Start(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("idempotency module requires a Redis client")
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Printf("[idempotency] Warning: Redis unreachable, keys are not enforced until it recovers: %v", err)
	}

	log.Printf("[idempotency] Module started (ttl: %s)", m.ttl)
	return nil
}

func (m *IdempotencyModule) Stop(_ context.Context) error {
	log.Println("[idempotency] Module stopped")
	return nil
}

func (m *IdempotencyModule) Health(ctx context.Context) mono.HealthStatus {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Middleware returns the Fiber handler.
func (m *IdempotencyModule) Middleware() fiber.Handler {
	return m.middleware.Handler()
}
