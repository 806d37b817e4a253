package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// stripeGateway implements Gateway on the Stripe API.
type stripeGateway struct {
	api *client.API
}

// NewStripeGateway creates a Stripe-backed gateway. Retries are disabled in the
// SDK because the retrying wrapper owns that policy.
func NewStripeGateway(secretKey string) Gateway {
	noRetry := &stripe.BackendConfig{MaxNetworkRetries: stripe.Int64(0)}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, noRetry),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, noRetry),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, noRetry),
	}
	return &stripeGateway{api: client.New(secretKey, backends)}
}

func (g *stripeGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if p.OrderID != "" {
		params.AddMetadata("order_id", p.OrderID)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify(err, "create payment intent")
	}
	return toIntent(pi), nil
}

func (g *stripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, classify(err, "get payment intent")
	}
	return toIntent(pi), nil
}

func (g *stripeGateway) Refund(ctx context.Context, p RefundParams) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(p.IntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	if p.Amount > 0 {
		params.Amount = stripe.Int64(p.Amount)
	}
	if p.Reason != "" {
		params.AddMetadata("reason", p.Reason)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	r, err := g.api.Refunds.New(params)
	if err != nil {
		return nil, classify(err, "create refund")
	}
	return &Refund{ID: r.ID, Status: string(r.Status), Amount: r.Amount}, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		OrderID:      pi.Metadata["order_id"],
	}
}

// classify maps a Stripe error to the application taxonomy. Rate limits,
// server errors and failures without an API response are transient.
func classify(err error, op string) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return Transient(apperr.Wrap(apperr.KindUpstream, err, "%s", op))
	}

	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= http.StatusInternalServerError:
		return Transient(apperr.Wrap(apperr.KindUpstream, err, "%s", op))
	case se.HTTPStatusCode == http.StatusNotFound:
		return apperr.NotFound("%s: %s", op, se.Msg)
	default:
		return apperr.Wrap(apperr.KindUpstream, err, "%s", op)
	}
}
