package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// PaymentModule exposes the payment gateway as request-reply services.
type PaymentModule struct {
	cfg        config.PaymentConfig
	gateway    Gateway
	configured bool
	service    *Service
}

// Compile-time interface checks.
var _ mono.Module = (*PaymentModule)(nil)
var _ mono.ServiceProviderModule = (*PaymentModule)(nil)
var _ mono.HealthCheckableModule = (*PaymentModule)(nil)

// Option customizes the module.
type Option func(*PaymentModule)

// WithGateway replaces the Stripe gateway, mainly for tests.
func WithGateway(g Gateway) Option {
	return func(m *PaymentModule) {
		m.gateway = g
		m.configured = true
	}
}

// NewModule creates the payment module. Without a Stripe key every gateway
// call fails with upstream_failure and only cash on delivery works.
func NewModule(cfg config.PaymentConfig, opts ...Option) *PaymentModule {
	m := &PaymentModule{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	if m.gateway == nil {
		if cfg.StripeSecretKey != "" {
			m.gateway = NewStripeGateway(cfg.StripeSecretKey)
			m.configured = true
		} else {
			m.gateway = unconfiguredGateway{}
		}
	}
	return m
}

// Name returns the module name.
func (m *PaymentModule) Name() string {
	return "payment"
}

// Start wires the service around the retrying gateway.
func (m *PaymentModule) Start(_ context.Context) error {
	m.service = NewService(WithRetry(m.gateway, DefaultRetryConfig(m.cfg.MaxRetries)), m.cfg.Currency)
	if !m.configured {
		log.Println("[payment] Warning: STRIPE_SECRET_KEY not set, card payments are disabled")
	}
	log.Println("[payment] Module started")
	return nil
}

// Stop shuts down the module.
func (m *PaymentModule) Stop(_ context.Context) error {
	log.Println("[payment] Module stopped")
	return nil
}

// Health reports whether a gateway is configured.
func (m *PaymentModule) Health(_ context.Context) mono.HealthStatus {
	if !m.configured {
		return mono.HealthStatus{
			Healthy: true,
			Message: "gateway not configured",
			Details: map[string]any{"currency": m.cfg.Currency, "card_payments": false},
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"currency": m.cfg.Currency, "card_payments": true},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *PaymentModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-intent", json.Unmarshal, json.Marshal, m.createIntent,
	); err != nil {
		return fmt.Errorf("failed to register create-intent service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-intent", json.Unmarshal, json.Marshal, m.getIntent,
	); err != nil {
		return fmt.Errorf("failed to register get-intent service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refund", json.Unmarshal, json.Marshal, m.refund,
	); err != nil {
		return fmt.Errorf("failed to register refund service: %w", err)
	}

	log.Println("[payment] Registered services: create-intent, get-intent, refund")
	return nil
}

func (m *PaymentModule) createIntent(ctx context.Context, req CreateIntentRequest, _ *mono.Msg) (IntentResponse, error) {
	resp, err := m.service.CreateIntent(ctx, req)
	if err != nil {
		return IntentResponse{}, err
	}
	return *resp, nil
}

func (m *PaymentModule) getIntent(ctx context.Context, req GetIntentRequest, _ *mono.Msg) (IntentResponse, error) {
	resp, err := m.service.GetIntent(ctx, req.ID)
	if err != nil {
		return IntentResponse{}, err
	}
	return *resp, nil
}

func (m *PaymentModule) refund(ctx context.Context, req RefundRequest, _ *mono.Msg) (RefundResponse, error) {
	resp, err := m.service.Refund(ctx, req)
	if err != nil {
		log.Printf("[payment] Refund for intent %s failed: %v", req.IntentID, err)
		return RefundResponse{}, err
	}
	log.Printf("[payment] Refund %s issued for intent %s (requested %s)",
		resp.ID, req.IntentID, amountOrZero(req.Amount).StringFixed(2))
	return *resp, nil
}
