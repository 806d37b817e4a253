package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Div1912/stylehub-backend/domain/pricing"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service converts between decimal amounts and the gateway's minor units and
// chooses idempotency keys.
type Service struct {
	gateway  Gateway
	currency string
}

// NewService creates a payment service.
func NewService(gateway Gateway, currency string) *Service {
	if currency == "" {
		currency = "inr"
	}
	return &Service{gateway: gateway, currency: strings.ToLower(currency)}
}

// CreateIntent opens a payment intent. Intents for an order reuse the
// order's key so a retried checkout never opens a second charge.
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error) {
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, apperr.Validation("amount must be a positive amount with at most 2 decimal places")
	}

	key := uuid.NewString()
	if req.OrderID != "" {
		key = fmt.Sprintf("order:%s:intent", req.OrderID)
	}

	intent, err := s.gateway.CreateIntent(ctx, CreateIntentParams{
		Amount:         pricing.ToMinorUnits(req.Amount),
		Currency:       s.currency,
		OrderID:        req.OrderID,
		Description:    req.Description,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	return toIntentResponse(intent), nil
}

// GetIntent fetches the gateway's current view of an intent.
func (s *Service) GetIntent(ctx context.Context, id string) (*IntentResponse, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("payment intent id is required")
	}
	intent, err := s.gateway.GetIntent(ctx, id)
	if err != nil {
		return nil, err
	}
	return toIntentResponse(intent), nil
}

// Refund refunds a captured intent. Any gateway failure, including a refund
// the gateway reports as failed or canceled, is a refund_failed error.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	if strings.TrimSpace(req.IntentID) == "" {
		return nil, apperr.Validation("payment intent id is required")
	}

	var amount int64
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, apperr.Validation("refund amount must be positive")
		}
		amount = pricing.ToMinorUnits(*req.Amount)
	}

	// One key per refund attempt. Gateway retries inside this call share it;
	// a later attempt for the same order gets a fresh key, since the gateway
	// would otherwise replay a stored rejection.
	key := uuid.NewString()
	if req.OrderID != "" {
		key = fmt.Sprintf("order:%s:refund:%s", req.OrderID, key)
	}

	refund, err := s.gateway.Refund(ctx, RefundParams{
		IntentID:       req.IntentID,
		Amount:         amount,
		Reason:         req.Reason,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRefundFailed, err, "refund rejected")
	}
	switch refund.Status {
	case "failed", "canceled":
		return nil, apperr.New(apperr.KindRefundFailed, "refund %s %s", refund.ID, refund.Status)
	}

	return &RefundResponse{
		ID:     refund.ID,
		Status: refund.Status,
		Amount: pricing.FromMinorUnits(refund.Amount),
	}, nil
}

func toIntentResponse(i *Intent) *IntentResponse {
	return &IntentResponse{
		ID:           i.ID,
		ClientSecret: i.ClientSecret,
		Status:       i.Status,
		Amount:       pricing.FromMinorUnits(i.Amount),
		Currency:     i.Currency,
		OrderID:      i.OrderID,
	}
}

// amountOrZero is used by callers that log refunds without an explicit amount.
func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
