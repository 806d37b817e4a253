package relay

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/Div1912/stylehub-backend/config"
	"github.com/Div1912/stylehub-backend/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RelayModule forwards order lifecycle events to a Kafka topic for systems
// outside the monolith.
type RelayModule struct {
	cfg       config.KafkaConfig
	writer    Writer
	publisher *Publisher
	relayed   atomic.Int64
	failed    atomic.Int64
}

var _ mono.Module = (*RelayModule)(nil)
var _ mono.EventConsumerModule = (*RelayModule)(nil)
var _ mono.HealthCheckableModule = (*RelayModule)(nil)

// Option configures the module.
type Option func(*RelayModule)

// WithWriter replaces the Kafka writer.
func WithWriter(w Writer) Option {
	return func(m *RelayModule) {
		m.writer = w
	}
}

func NewModule(cfg config.KafkaConfig, opts ...Option) *RelayModule {
	m := &RelayModule{cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RelayModule) Name() string {
	return "relay"
}

func (m *RelayModule) Start(_ context.Context) error {
	if m.writer == nil {
		if len(m.cfg.Brokers) == 0 {
			return fmt.Errorf("relay module requires at least one Kafka broker")
		}
		m.writer = NewWriter(m.cfg.Brokers, m.cfg.OrderTopic)
	}
	m.publisher = NewPublisher(m.writer)

	log.Printf("[relay] Module started (brokers: %s, topic: %s)", strings.Join(m.cfg.Brokers, ","), m.cfg.OrderTopic)
	return nil
}

func (m *RelayModule) Stop(_ context.Context) error {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			log.Printf("[relay] Warning: failed to close Kafka writer: %v", err)
		}
	}
	log.Println("[relay] Module stopped")
	return nil
}

// Health is degraded while failures outnumber successful writes.
func (m *RelayModule) Health(_ context.Context) mono.HealthStatus {
	relayed, failed := m.relayed.Load(), m.failed.Load()
	healthy := m.publisher != nil && failed <= relayed
	message := "operational"
	if !healthy {
		message = "kafka writes failing"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"topic":   m.cfg.OrderTopic,
			"relayed": relayed,
			"failed":  failed,
		},
	}
}

func (m *RelayModule) RegisterEventConsumers(registry mono.EventRegistry) error {
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

	log.Printf("[relay] Registered event consumers: OrderPlaced, OrderStatusChanged, OrderCancelled, " +
		"PaymentConfirmed, PaymentFailed, OrderRefunded")
	return nil
}

func (m *RelayModule) relay(ctx context.Context, eventType, orderID string, payload any) error {
	if err := m.publisher.Publish(ctx, eventType, orderID, payload); err != nil {
		m.failed.Add(1)
		log.Printf("[relay] Warning: %v (order %s)", err, orderID)
		return nil
	}
	m.relayed.Add(1)
	return nil
}

func (m *RelayModule) handleOrderPlaced(ctx context.Context, e events.OrderPlacedEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypeOrderPlaced, e.OrderID, e)
}

func (m *RelayModule) handleStatusChanged(ctx context.Context, e events.OrderStatusChangedEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypeOrderStatusChanged, e.OrderID, e)
}

func (m *RelayModule) handleOrderCancelled(ctx context.Context, e events.OrderCancelledEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypeOrderCancelled, e.OrderID, e)
}

func (m *RelayModule) handlePaymentConfirmed(ctx context.Context, e events.PaymentConfirmedEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypePaymentConfirmed, e.OrderID, e)
}

func (m *RelayModule) handlePaymentFailed(ctx context.Context, e events.PaymentFailedEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypePaymentFailed, e.OrderID, e)
}

func (m *RelayModule) handleOrderRefunded(ctx context.Context, e events.OrderRefundedEvent, _ *mono.Msg) error {
	return m.relay(ctx, TypeOrderRefunded, e.OrderID, e)
}
