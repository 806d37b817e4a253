package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/Div1912/stylehub-backend/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// NotificationModule mails customers about account and order events.
type NotificationModule struct {
	cfg         config.MailConfig
	frontendURL string
	mailer      Mailer
	service     *Service
}

var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)

// Option configures the module.
type Option func(*NotificationModule)

// WithMailer replaces the configured mailer.
func WithMailer(mailer Mailer) Option {
	return func(m *NotificationModule) {
		m.mailer = mailer
	}
}

func NewModule(cfg config.MailConfig, frontendURL string, opts ...Option) *NotificationModule {
	m := &NotificationModule{cfg: cfg, frontendURL: frontendURL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *NotificationModule) Name() string {
	return "notification"
}

// Start parses the templates and picks the mailer.
func (m *NotificationModule) Start(_ context.Context) error {
	renderer, err := NewRenderer()
	if err != nil {
		return err
	}

	mode := "custom"
	if m.mailer == nil {
		if m.cfg.Host == "" {
			m.mailer = LogMailer{}
			mode = "log"
		} else {
			smtp, err := NewSMTPMailer(m.cfg)
			if err != nil {
				return err
			}
			m.mailer = smtp
			mode = "smtp " + m.cfg.Host
		}
	}
	m.service = NewService(renderer, m.mailer, m.frontendURL)

	log.Printf("[notification] Module started (mailer: %s)", mode)
	return nil
}

func (m *NotificationModule) Stop(_ context.Context) error {
	log.Println("[notification] Module stopped")
	return nil
}

func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserRegisteredV1, m.handleUserRegistered, m); err != nil {
		return fmt.Errorf("failed to register UserRegistered consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.EmailVerifiedV1, m.handleEmailVerified, m); err != nil {
		return fmt.Errorf("failed to register EmailVerified consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PasswordResetRequestedV1, m.handlePasswordReset, m); err != nil {
		return fmt.Errorf("failed to register PasswordResetRequested consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.OrderPlacedV1, m.handleOrderPlaced, m); err != nil {
		return fmt.Errorf("failed to register OrderPlaced consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.OrderStatusChangedV1, m.handleStatusChanged, m); err != nil {
		return fmt.Errorf("failed to register OrderStatusChanged consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.OrderCancelledV1, m.handleOrderCancelled, m); err != nil {
		return fmt.Errorf("failed to register OrderCancelled consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PaymentConfirmedV1, m.handlePaymentConfirmed, m); err != nil {
		return fmt.Errorf("failed to register PaymentConfirmed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.PaymentFailedV1, m.handlePaymentFailed, m); err != nil {
		return fmt.Errorf("failed to register PaymentFailed consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.OrderRefundedV1, m.handleOrderRefunded, m); err != nil {
		return fmt.Errorf("failed to register OrderRefunded consumer: %w", err)
	}

	log.Printf("[notification] Registered event consumers: UserRegistered, EmailVerified, PasswordResetRequested, " +
		"OrderPlaced, OrderStatusChanged, OrderCancelled, PaymentConfirmed, PaymentFailed, OrderRefunded")
	return nil
}

// deliver sends best effort; a failed mail never fails the event.
func (m *NotificationModule) deliver(ctx context.Context, event string, ml mail) error {
	if err := m.service.Send(ctx, ml.to, ml.subject, ml.template, ml.data); err != nil {
		log.Printf("[notification] Warning: %s mail to %s failed: %v", event, ml.to, err)
		return nil
	}
	log.Printf("[notification] Sent %s mail to %s", ml.template, ml.to)
	return nil
}

func (m *NotificationModule) handleUserRegistered(ctx context.Context, e events.UserRegisteredEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "UserRegistered", m.service.verification(e))
}

func (m *NotificationModule) handleEmailVerified(ctx context.Context, e events.EmailVerifiedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "EmailVerified", m.service.welcome(e))
}

func (m *NotificationModule) handlePasswordReset(ctx context.Context, e events.PasswordResetRequestedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "PasswordResetRequested", m.service.resetPassword(e))
}

func (m *NotificationModule) handleOrderPlaced(ctx context.Context, e events.OrderPlacedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "OrderPlaced", m.service.orderConfirmation(e))
}

func (m *NotificationModule) handleStatusChanged(ctx context.Context, e events.OrderStatusChangedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "OrderStatusChanged", m.service.statusChanged(e))
}

func (m *NotificationModule) handleOrderCancelled(ctx context.Context, e events.OrderCancelledEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "OrderCancelled", m.service.cancelled(e))
}

func (m *NotificationModule) handlePaymentConfirmed(ctx context.Context, e events.PaymentConfirmedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "PaymentConfirmed", m.service.paymentConfirmed(e))
}

func (m *NotificationModule) handlePaymentFailed(ctx context.Context, e events.PaymentFailedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "PaymentFailed", m.service.paymentFailed(e))
}

func (m *NotificationModule) handleOrderRefunded(ctx context.Context, e events.OrderRefundedEvent, _ *mono.Msg) error {
	return m.deliver(ctx, "OrderRefunded", m.service.refunded(e))
}
