package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Header is the request header carrying the client's key.
const Header = "Idempotency-Key"

const maxKeyLength = 255

// Middleware replays stored responses for repeated keys. Keys are scoped to
// the authenticated user read from userLocal.
type Middleware struct {
	store     *Store
	userLocal string
	logger    *slog.Logger
}

// NewMiddleware creates the middleware. A nil logger uses slog.Default.
func NewMiddleware(store *Store, userLocal string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{store: store, userLocal: userLocal, logger: logger}
}

// Handler returns the Fiber handler. Requests without the header pass through.
func (m *Middleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(Header))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxKeyLength {
			return reject(c, fiber.StatusBadRequest, "validation_error", "Idempotency-Key is too long")
		}

		user, _ := c.Locals(m.userLocal).(string)
		scoped := user + ":" + key
		fp := fingerprint(c)

		rec, err := m.store.Begin(c.UserContext(), scoped, fp)
		switch {
		case errors.Is(err, ErrInProgress):
			return reject(c, fiber.StatusConflict, "conflict", "a request with this Idempotency-Key is still in progress")
		case errors.Is(err, ErrMismatch):
			return reject(c, fiber.StatusUnprocessableEntity, "validation_error", "Idempotency-Key was already used for a different request")
		case err != nil:
			m.logger.Warn("idempotency store unavailable, processing request",
				slog.String("error", err.Error()))
			return c.Next()
		case rec != nil:
			c.Set("Idempotent-Replayed", "true")
			if rec.ContentType != "" {
				c.Set(fiber.HeaderContentType, rec.ContentType)
			}
			return c.Status(rec.Status).Send(rec.Body)
		}

		handlerErr := c.Next()

		// Handlers may leave the request context cancelled; bookkeeping gets its own.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.UserContext()), 5*time.Second)
		defer cancel()

		status := c.Response().StatusCode()
		if handlerErr != nil || status >= fiber.StatusInternalServerError {
			if err := m.store.Release(ctx, scoped); err != nil {
				m.logger.Warn("failed to release idempotency key", slog.String("error", err.Error()))
			}
			return handlerErr
		}

		body := append([]byte(nil), c.Response().Body()...)
		if err := m.store.Complete(ctx, scoped, Record{
			Fingerprint: fp,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        body,
		}); err != nil {
			m.logger.Warn("failed to store idempotent response", slog.String("error", err.Error()))
		}
		return nil
	}
}

// fingerprint identifies the request a key was first used with.
func fingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}

func reject(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}
