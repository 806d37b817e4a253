package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*UserResponse, error)
	VerifyEmail(ctx context.Context, token string) (*VerifyEmailResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// call invokes a service and restores the error classification lost in transit.
func (a *AuthAdapter) call(ctx context.Context, service string, req, resp any) error {
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return apperr.Decode(fmt.Errorf("%s request failed: %w", service, err))
	}
	return nil
}

func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := a.call(ctx, "register", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAdapter) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := a.call(ctx, "login", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp domain.TokenPair
	if err := a.call(ctx, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := a.call(ctx, "validate-token", &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, apperr.Unauthorized("%s", resp.Error)
	}

	return &domain.Claims{
		UserID:   resp.UserID,
		Email:    resp.Email,
		Name:     resp.Name,
		Role:     resp.Role,
		Verified: resp.Verified,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	req := GetUserRequest{UserID: userID}
	var resp UserResponse
	if err := a.call(ctx, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAdapter) VerifyEmail(ctx context.Context, token string) (*VerifyEmailResponse, error) {
	req := VerifyEmailRequest{Token: token}
	var resp VerifyEmailResponse
	if err := a.call(ctx, "verify-email", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAdapter) ForgotPassword(ctx context.Context, email string) error {
	req := ForgotPasswordRequest{Email: email}
	var resp ForgotPasswordResponse
	return a.call(ctx, "forgot-password", &req, &resp)
}

func (a *AuthAdapter) ResetPassword(ctx context.Context, token, password string) error {
	req := ResetPasswordRequest{Token: token, Password: password}
	var resp ResetPasswordResponse
	return a.call(ctx, "reset-password", &req, &resp)
}
