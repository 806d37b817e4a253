package payment

import (
	"context"
	"errors"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
)

// Intent is a gateway payment intent. Amounts are in minor currency units.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	OrderID      string
}

// IntentSucceeded is the only gateway status that counts as paid.
const IntentSucceeded = "succeeded"

// Succeeded reports whether the intent was captured.
func (i *Intent) Succeeded() bool {
	return i.Status == IntentSucceeded
}

// Refund is the gateway's answer to a refund request.
type Refund struct {
	ID     string
	Status string
	Amount int64
}

type CreateIntentParams struct {
	Amount         int64
	Currency       string
	OrderID        string
	Description    string
	IdempotencyKey string
}

type RefundParams struct {
	IntentID string
	// Amount of zero refunds the full charge.
	Amount         int64
	Reason         string
	IdempotencyKey string
}

// Gateway is the port to the external payment processor.
type Gateway interface {
	CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	Refund(ctx context.Context, p RefundParams) (*Refund, error)
}

// transientError marks a failure worth retrying with the same idempotency key.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// ErrNotConfigured is returned by every call when no gateway credentials are set.
var ErrNotConfigured = apperr.New(apperr.KindUpstream, "payment gateway is not configured")

// unconfiguredGateway keeps cash-on-delivery orders working without credentials.
type unconfiguredGateway struct{}

func (unconfiguredGateway) CreateIntent(context.Context, CreateIntentParams) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (unconfiguredGateway) GetIntent(context.Context, string) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (unconfiguredGateway) Refund(context.Context, RefundParams) (*Refund, error) {
	return nil, ErrNotConfigured
}
