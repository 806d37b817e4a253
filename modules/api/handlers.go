package api

import (
	"context"
	"log/slog"

	"github.com/Div1912/stylehub-backend/modules/auth"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/media"
	"github.com/Div1912/stylehub-backend/modules/order"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/gofiber/fiber/v2"
)

// MediaService is the part of the media module the HTTP layer uses.
type MediaService interface {
	Upload(ctx context.Context, prefix string, files []media.File, limit int) ([]string, error)
	Delete(ctx context.Context, keys []string) int
	URLs(keys []string) map[string]string
	Open(ctx context.Context, key, token string) ([]byte, *media.ObjectInfo, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth     auth.AuthPort
	catalog  catalog.CatalogPort
	orders   order.OrderPort
	payments payment.PaymentPort
	media    MediaService
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authPort auth.AuthPort,
	catalogPort catalog.CatalogPort,
	orderPort order.OrderPort,
	paymentPort payment.PaymentPort,
	mediaService MediaService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		auth:     authPort,
		catalog:  catalogPort,
		orders:   orderPort,
		payments: paymentPort,
		media:    mediaService,
		logger:   logger,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return created(c, resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	resp, err := h.auth.Login(c.UserContext(), auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return ok(c, tokens)
}

// VerifyEmail consumes an email verification token.
func (h *Handlers) VerifyEmail(c *fiber.Ctx) error {
	resp, err := h.auth.VerifyEmail(c.UserContext(), c.Params("token"))
	if err != nil {
		return err
	}
	return ok(c, resp)
}

// ForgotPassword always answers the same way so that callers cannot probe
// which addresses are registered.
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "if the address is registered, a reset link has been sent"})
}

// ResetPassword sets a new password from a reset token.
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return ok(c, fiber.Map{"message": "password has been reset"})
}

// Me returns the authenticated user's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return apperr.Unauthorized("authentication required")
	}
	user, err := h.auth.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return ok(c, user)
}
