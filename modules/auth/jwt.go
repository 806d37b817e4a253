package auth

import (
	"errors"
	"time"

	domain "github.com/Div1912/stylehub-backend/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Token types. A token is only accepted where its type is expected.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
	TokenVerify  = "verify"
	TokenReset   = "reset"
)

const (
	verifyTokenDuration = 24 * time.Hour
	resetTokenDuration  = time.Hour
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// JWTClaims represents the custom claims for JWT tokens.
type JWTClaims struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	Verified  bool        `json:"verified,omitempty"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations.
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
	}
}

// GenerateAccessToken issues an access token carrying the user's identity and role.
func (m *JWTManager) GenerateAccessToken(u *domain.User) (string, error) {
	claims := identityClaims(u, TokenAccess)
	return m.generateToken(&claims, m.config.AccessTokenDuration)
}

// GenerateRefreshToken issues a refresh token.
func (m *JWTManager) GenerateRefreshToken(u *domain.User) (string, error) {
	return m.generateToken(&JWTClaims{UserID: u.ID, Email: u.Email, TokenType: TokenRefresh}, m.config.RefreshTokenDuration)
}

// GenerateVerifyToken issues an email verification token.
func (m *JWTManager) GenerateVerifyToken(u *domain.User) (string, error) {
	return m.generateToken(&JWTClaims{UserID: u.ID, Email: u.Email, TokenType: TokenVerify}, verifyTokenDuration)
}

// GenerateResetToken issues a password reset token and returns its expiry.
func (m *JWTManager) GenerateResetToken(u *domain.User) (string, time.Time, error) {
	claims := JWTClaims{UserID: u.ID, Email: u.Email, TokenType: TokenReset}
	// jti keeps two resets issued in the same second distinct.
	claims.ID = uuid.NewString()
	token, err := m.generateToken(&claims, resetTokenDuration)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

func identityClaims(u *domain.User, tokenType string) JWTClaims {
	return JWTClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Verified:  u.Verified,
		TokenType: tokenType,
	}
}

// generateToken signs claims after stamping the registered fields. ExpiresAt
// is written back through the pointer so callers can read it.
func (m *JWTManager) generateToken(claims *JWTClaims, duration time.Duration) (string, error) {
	now := time.Now()
	claims.Issuer = m.config.Issuer
	claims.Subject = claims.UserID
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(duration))
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken validates the token and returns the claims if valid.
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateTyped validates a token and requires the given token type.
func (m *JWTManager) ValidateTyped(tokenString, tokenType string) (*JWTClaims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateAccessToken validates an access token.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return m.ValidateTyped(tokenString, TokenAccess)
}

// ValidateRefreshToken validates a refresh token.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return m.ValidateTyped(tokenString, TokenRefresh)
}

// AccessTokenDuration returns the access token duration in seconds.
func (m *JWTManager) AccessTokenDuration() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}
