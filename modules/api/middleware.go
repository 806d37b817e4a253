package api

import (
	"strings"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/ratelimit"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey holds the caller's *domain.Claims.
	UserContextKey = "user"
)

// AuthMiddleware rejects requests without a valid access token. Claims
// already resolved by OptionalAuth are reused.
func AuthMiddleware(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claimsFrom(c) != nil {
			return c.Next()
		}
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("Authorization header is required")
		}
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return apperr.Unauthorized("Invalid authorization header format. Use: Bearer <token>")
		}

		claims, err := authPort.ValidateToken(c.UserContext(), strings.TrimSpace(token))
		if err != nil {
			return apperr.Unauthorized("Invalid or expired token")
		}
		setClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(authPort auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if found && strings.TrimSpace(token) != "" {
			if claims, err := authPort.ValidateToken(c.UserContext(), strings.TrimSpace(token)); err == nil {
				setClaims(c, claims)
			}
		}
		return c.Next()
	}
}

// RequireRoles allows only callers holding one of roles. It must run after
// AuthMiddleware.
func RequireRoles(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := claimsFrom(c)
		if claims == nil {
			return apperr.Unauthorized("authentication required")
		}
		if !claims.HasRole(roles...) {
			return apperr.Forbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireVerified blocks callers whose email is not verified when enabled.
func RequireVerified(enabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !enabled {
			return c.Next()
		}
		claims := claimsFrom(c)
		if claims == nil {
			return apperr.Unauthorized("authentication required")
		}
		if !claims.Verified && !claims.IsAdmin() {
			return apperr.Forbidden("please verify your email address first")
		}
		return c.Next()
	}
}

func setClaims(c *fiber.Ctx, claims *domain.Claims) {
	c.Locals(UserContextKey, claims)
	c.Locals(ratelimit.LocalsUserID, claims.UserID)
}

func claimsFrom(c *fiber.Ctx) *domain.Claims {
	claims, _ := c.Locals(UserContextKey).(*domain.Claims)
	return claims
}
