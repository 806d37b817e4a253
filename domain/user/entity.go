package user

import (
	"fmt"
	"strings"
	"time"
)

// Role controls what a user may do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role string. Empty means customer.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return RoleCustomer, nil
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User represents a user entity in the system.
type User struct {
	ID             string `gorm:"primaryKey;type:text"`
	Email          string `gorm:"uniqueIndex;not null;type:text"`
	Name           string `gorm:"not null;type:text"`
	Phone          string `gorm:"type:text"`
	PasswordHash   string `gorm:"not null;type:text"`
	Role           Role   `gorm:"not null;type:text;default:customer"`
	Verified       bool   `gorm:"not null;default:false"`
	ResetTokenHash string `gorm:"type:text;index"`
	ResetExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the authenticated identity carried by an access token.
type Claims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Verified bool   `json:"verified"`
}

// IsAdmin reports whether the caller is an administrator.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// HasRole reports whether the caller holds any of roles.
func (c *Claims) HasRole(roles ...Role) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
