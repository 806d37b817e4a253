package ratelimit

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimitModule owns the general and the stricter auth limiter.
type RateLimitModule struct {
	client  *redis.Client
	cfg     config.RateLimitConfig
	logger  *slog.Logger
	general *Middleware
	auth    *Middleware
}

var _ mono.Module = (*RateLimitModule)(nil)
var _ mono.HealthCheckableModule = (*RateLimitModule)(nil)

// NewModule creates the module on a shared Redis client. The handlers are
// usable before Start so that the HTTP module can mount them in any order.
func NewModule(client *redis.Client, cfg config.RateLimitConfig, logger *slog.Logger) *RateLimitModule {
	m := &RateLimitModule{client: client, cfg: cfg, logger: logger}
	if client != nil {
		m.general = NewMiddleware(
			NewLimiter(client, Config{Requests: cfg.Requests, Window: cfg.Window}, "ratelimit:api:"),
			ByUserOrIP, logger)
		m.auth = NewMiddleware(
			NewLimiter(client, Config{Requests: cfg.AuthRequests, Window: cfg.Window}, "ratelimit:auth:"),
			ByIP, logger)
	}
	return m
}

func (m *RateLimitModule) Name() string {
	return "ratelimit"
}

// Start checks Redis. An unreachable Redis is logged, not fatal: the
// middleware fails open until it comes back.
func (m *RateLimitModule) Start(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("ratelimit module requires a Redis client")
	}
	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Printf("[ratelimit] Warning: Redis unreachable, limits disabled until it recovers: %v", err)
	}

	log.Printf("[ratelimit] Module started (%d req/%s, auth %d req/%s)",
		m.cfg.Requests, m.cfg.Window, m.cfg.AuthRequests, m.cfg.Window)
	return nil
}

func (m *RateLimitModule) Stop(_ context.Context) error {
	log.Println("[ratelimit] Module stopped")
	return nil
}

func (m *RateLimitModule) Health(ctx context.Context) mono.HealthStatus {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// General limits every API request.
func (m *RateLimitModule) General() fiber.Handler {
	return m.general.Handler()
}

// Auth limits the authentication endpoints.
func (m *RateLimitModule) Auth() fiber.Handler {
	return m.auth.Handler()
}
