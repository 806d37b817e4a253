package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = apperr.Validation("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = apperr.Validation("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = apperr.Validation("password must be at most 72 characters")
	ErrNameRequired    = apperr.Validation("name is required")
	ErrInvalidRole     = apperr.Validation("role must be customer or seller")
	// ErrInvalidResetToken covers unknown, expired, reused and superseded reset tokens.
	ErrInvalidResetToken  = apperr.Validation("invalid or expired reset token")
	ErrInvalidVerifyToken = apperr.Validation("invalid or expired verification token")
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// Registration is the outcome of a successful Register call.
type Registration struct {
	User        *domain.User
	Tokens      *domain.TokenPair
	VerifyToken string
}

// ResetIssued describes a reset token handed out by ForgotPassword.
type ResetIssued struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles authentication business logic.
type AuthService struct {
	repo   *UserRepository
	hasher *PasswordHasher
	jwt    *JWTManager
	now    func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
		now:    time.Now,
	}
}

// Register creates a new account. Admin is never self-assigned.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil || role == domain.RoleAdmin {
		return nil, ErrInvalidRole
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	user, err := s.createUser(ctx, email, in.Password, name, strings.TrimSpace(in.Phone), role, false)
	if err != nil {
		return nil, err
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, err
	}
	verifyToken, err := s.jwt.GenerateVerifyToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	return &Registration{User: user, Tokens: tokens, VerifyToken: verifyToken}, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, name, phone string, role domain.Role, verified bool) (*domain.User, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         role,
		Verified:     verified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and returns tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *domain.TokenPair, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshTokens issues a new pair. Role and verification are re-read so the
// new access token reflects the current account.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, err, "invalid refresh token")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(user)
}

// ValidateToken validates an access token and returns claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	return &domain.Claims{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Name:     claims.Name,
		Role:     claims.Role,
		Verified: claims.Verified,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// VerifyEmail marks the token's user verified. It reports whether this call
// performed the verification; repeating it succeeds without change.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, bool, error) {
	claims, err := s.jwt.ValidateTyped(token, TokenVerify)
	if err != nil {
		return nil, false, ErrInvalidVerifyToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, false, ErrInvalidVerifyToken
		}
		return nil, false, err
	}
	if !strings.EqualFold(user.Email, claims.Email) {
		return nil, false, ErrInvalidVerifyToken
	}

	changed, err := s.repo.MarkVerified(ctx, user.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to verify user: %w", err)
	}
	user.Verified = true
	return user, changed, nil
}

// ForgotPassword issues a single-use reset token. Unknown emails return a nil
// result and no error so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*ResetIssued, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	token, expiresAt, err := s.jwt.GenerateResetToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.repo.SetResetToken(ctx, user.ID, hashToken(token), expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}

	return &ResetIssued{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword sets a new password using a token from ForgotPassword.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	claims, err := s.jwt.ValidateTyped(token, TokenReset)
	if err != nil {
		return ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ok, err := s.repo.ConsumeResetToken(ctx, claims.UserID, hashToken(token), passwordHash, s.now())
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}

// SeedAdmin creates a verified admin account unless the email is taken.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if err := validatePassword(password); err != nil {
		return false, err
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := s.createUser(ctx, email, password, "Administrator", "", domain.RoleAdmin, true); err != nil {
		if errors.Is(err, ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// generateTokenPair generates both access and refresh tokens.
func (s *AuthService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// validatePassword enforces bcrypt's 72-byte input limit as an upper bound.
func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
