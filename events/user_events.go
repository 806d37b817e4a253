package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserRegisteredEvent is emitted after a new account is created.
type UserRegisteredEvent struct {
	UserID            string    `json:"user_id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	VerificationToken string    `json:"verification_token"`
	RegisteredAt      time.Time `json:"registered_at"`
}

// UserRegisteredV1 is the typed event definition for registration.
// Subject: events.auth.v1.user-registered
var UserRegisteredV1 = helper.EventDefinition[UserRegisteredEvent](
	"auth", "UserRegistered", "v1",
)

// EmailVerifiedEvent is emitted the first time a user verifies their address.
type EmailVerifiedEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	VerifiedAt time.Time `json:"verified_at"`
}

// EmailVerifiedV1 is the typed event definition for email verification.
var EmailVerifiedV1 = helper.EventDefinition[EmailVerifiedEvent](
	"auth", "EmailVerified", "v1",
)

// PasswordResetRequestedEvent carries the raw single-use reset token.
type PasswordResetRequestedEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordResetRequestedV1 is the typed event definition for forgot-password.
var PasswordResetRequestedV1 = helper.EventDefinition[PasswordResetRequestedEvent](
	"auth", "PasswordResetRequested", "v1",
)
