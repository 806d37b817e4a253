package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// LocalsUserID is the fiber.Ctx local holding the authenticated user id.
const LocalsUserID = "user_id"

// KeyFunc picks the caller key a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

// ByUserOrIP keys authenticated requests by user id and the rest by client IP.
func ByUserOrIP(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalsUserID).(string); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + c.IP()
}

// ByIP keys every request by client IP.
func ByIP(c *fiber.Ctx) string {
	return "ip:" + c.IP()
}

// Middleware applies one limiter to Fiber requests.
type Middleware struct {
	limiter *Limiter
	key     KeyFunc
	logger  *slog.Logger
}

// NewMiddleware creates a middleware. A nil logger uses slog.Default.
func NewMiddleware(limiter *Limiter, key KeyFunc, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{limiter: limiter, key: key, logger: logger}
}

// Handler returns the Fiber handler. Limiter errors let the request through.
func (m *Middleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := m.key(c)
		result, err := m.limiter.Allow(c.UserContext(), key)
		if err != nil {
			m.logger.Warn("rate limiter unavailable, allowing request",
				slog.String("key", key),
				slog.String("error", err.Error()))
			return c.Next()
		}

		setHeaders(c, result)
		if !result.Allowed {
			return tooManyRequests(c, result)
		}
		return c.Next()
	}
}

func setHeaders(c *fiber.Ctx, r *Result) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
}

func tooManyRequests(c *fiber.Ctx, r *Result) error {
	retryAfter := int(math.Ceil(r.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"status":  "error",
		"code":    "rate_limited",
		"message": fmt.Sprintf("Too many requests. Please retry after %d seconds.", retryAfter),
	})
}
