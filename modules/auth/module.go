package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/Div1912/stylehub-backend/config"
	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/events"
	"github.com/Div1912/stylehub-backend/pkg/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// AuthModule provides authentication services.
type AuthModule struct {
	db       *gorm.DB
	cfg      config.AuthConfig
	cost     int
	service  *AuthService
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule backed by db.
func NewModule(db *gorm.DB, cfg config.AuthConfig) *AuthModule {
	return &AuthModule{
		db:  db,
		cfg: cfg,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (m *AuthModule) WithBcryptCost(cost int) *AuthModule {
	m.cost = cost
	return m
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetEventBus receives the EventBus from the framework.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
		events.EmailVerifiedV1.ToBase(),
		events.PasswordResetRequestedV1.ToBase(),
	}
}

// Start migrates the user table, builds the service and seeds the admin account.
func (m *AuthModule) Start(ctx context.Context) error {
	if err := m.init(); err != nil {
		return err
	}

	if m.cfg.AdminEmail != "" && m.cfg.AdminPassword != "" {
		created, err := m.service.SeedAdmin(ctx, m.cfg.AdminEmail, m.cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		if created {
			log.Printf("[auth] Seeded admin account %s", m.cfg.AdminEmail)
		}
	}

	log.Printf("[auth] Module started")
	return nil
}

func (m *AuthModule) init() error {
	if m.db == nil {
		return errors.New("auth module requires a database")
	}
	if err := m.db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	jwtManager := NewJWTManager(JWTConfig{
		SecretKey:            m.cfg.SecretKey,
		AccessTokenDuration:  m.cfg.AccessTokenDuration,
		RefreshTokenDuration: m.cfg.RefreshTokenDuration,
		Issuer:               m.cfg.Issuer,
	})
	m.service = NewAuthService(NewUserRepository(m.db), NewPasswordHasher(m.cost), jwtManager)
	return nil
}

// Stop shuts down the module. The shared connection is closed by main.
func (m *AuthModule) Stop(_ context.Context) error {
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if err := database.Ping(m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "verify-email", json.Unmarshal, json.Marshal, m.handleVerifyEmail,
	); err != nil {
		return fmt.Errorf("failed to register verify-email service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "forgot-password", json.Unmarshal, json.Marshal, m.handleForgotPassword,
	); err != nil {
		return fmt.Errorf("failed to register forgot-password service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "reset-password", json.Unmarshal, json.Marshal, m.handleResetPassword,
	); err != nil {
		return fmt.Errorf("failed to register reset-password service: %w", err)
	}

	log.Printf("[auth] Registered services: register, login, refresh-token, validate-token, get-user, verify-email, forgot-password, reset-password")
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (AuthResponse, error) {
	reg, err := m.service.Register(ctx, RegisterInput(req))
	if err != nil {
		return AuthResponse{}, err
	}

	m.publishUserRegistered(events.UserRegisteredEvent{
		UserID:            reg.User.ID,
		Email:             reg.User.Email,
		Name:              reg.User.Name,
		Role:              string(reg.User.Role),
		VerificationToken: reg.VerifyToken,
		RegisteredAt:      reg.User.CreatedAt,
	})

	return AuthResponse{User: toUserResponse(reg.User), Tokens: *reg.Tokens}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (AuthResponse, error) {
	user, tokens, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{User: toUserResponse(user), Tokens: *tokens}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (domain.TokenPair, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return *tokens, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		if errors.Is(err, ErrExpiredToken) {
			errMsg = "token expired"
		}
		// validation failures are a normal answer, not a service error
		return ValidateTokenResponse{Valid: false, Error: errMsg}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Email:    claims.Email,
		Name:     claims.Name,
		Role:     claims.Role,
		Verified: claims.Verified,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (m *AuthModule) handleVerifyEmail(ctx context.Context, req VerifyEmailRequest, _ *mono.Msg) (VerifyEmailResponse, error) {
	user, changed, err := m.service.VerifyEmail(ctx, req.Token)
	if err != nil {
		return VerifyEmailResponse{}, err
	}

	if changed {
		m.publishEmailVerified(events.EmailVerifiedEvent{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.Name,
			VerifiedAt: m.service.now(),
		})
	}
	return VerifyEmailResponse{User: toUserResponse(user), AlreadyVerified: !changed}, nil
}

func (m *AuthModule) handleForgotPassword(ctx context.Context, req ForgotPasswordRequest, _ *mono.Msg) (ForgotPasswordResponse, error) {
	issued, err := m.service.ForgotPassword(ctx, req.Email)
	if err != nil {
		return ForgotPasswordResponse{}, err
	}

	if issued != nil {
		m.publishPasswordResetRequested(events.PasswordResetRequestedEvent{
			UserID:    issued.User.ID,
			Email:     issued.User.Email,
			Name:      issued.User.Name,
			Token:     issued.Token,
			ExpiresAt: issued.ExpiresAt,
		})
	}
	return ForgotPasswordResponse{Accepted: true}, nil
}

func (m *AuthModule) handleResetPassword(ctx context.Context, req ResetPasswordRequest, _ *mono.Msg) (ResetPasswordResponse, error) {
	if err := m.service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return ResetPasswordResponse{}, err
	}
	return ResetPasswordResponse{Reset: true}, nil
}

// Event publishing is best-effort: a lost notification never fails the request.

func (m *AuthModule) publishUserRegistered(evt events.UserRegisteredEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.UserRegisteredV1.Publish(m.eventBus, evt, nil); err != nil {
		log.Printf("[auth] Warning: failed to publish UserRegistered for user %s: %v", evt.UserID, err)
	}
}

func (m *AuthModule) publishEmailVerified(evt events.EmailVerifiedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.EmailVerifiedV1.Publish(m.eventBus, evt, nil); err != nil {
		log.Printf("[auth] Warning: failed to publish EmailVerified for user %s: %v", evt.UserID, err)
	}
}

func (m *AuthModule) publishPasswordResetRequested(evt events.PasswordResetRequestedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.PasswordResetRequestedV1.Publish(m.eventBus, evt, nil); err != nil {
		log.Printf("[auth] Warning: failed to publish PasswordResetRequested for user %s: %v", evt.UserID, err)
	}
}
