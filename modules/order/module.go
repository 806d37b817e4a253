package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	domain "github.com/Div1912/stylehub-backend/domain/order"
	"github.com/Div1912/stylehub-backend/domain/pricing"
	"github.com/Div1912/stylehub-backend/events"
	"github.com/Div1912/stylehub-backend/modules/catalog"
	"github.com/Div1912/stylehub-backend/modules/payment"
	"github.com/Div1912/stylehub-backend/pkg/database"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderModule manages the order lifecycle (depends on catalog and payment).
type OrderModule struct {
	db       *gorm.DB
	calc     pricing.Calculator
	stock    catalog.StockPort
	payments payment.PaymentPort
	eventBus mono.EventBus
	service  *Service
}

// Compile-time interface checks.
var _ mono.Module = (*OrderModule)(nil)
var _ mono.ServiceProviderModule = (*OrderModule)(nil)
var _ mono.DependentModule = (*OrderModule)(nil)
var _ mono.EventEmitterModule = (*OrderModule)(nil)
var _ mono.HealthCheckableModule = (*OrderModule)(nil)

// NewModule creates the order module.
func NewModule(db *gorm.DB, calc pricing.Calculator) *OrderModule {
	return &OrderModule{db: db, calc: calc}
}

// Name returns the module name.
func (m *OrderModule) Name() string {
	return "order"
}

// Dependencies returns the modules this one calls.
func (m *OrderModule) Dependencies() []string {
	return []string{"catalog", "payment"}
}

// SetDependencyServiceContainer receives the dependencies' service containers.
func (m *OrderModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "catalog":
		m.stock = catalog.NewCatalogAdapter(container)
	case "payment":
		m.payments = payment.NewPaymentAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *OrderModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *OrderModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.OrderPlacedV1.ToBase(),
		events.OrderStatusChangedV1.ToBase(),
		events.OrderCancelledV1.ToBase(),
		events.PaymentConfirmedV1.ToBase(),
		events.PaymentFailedV1.ToBase(),
		events.OrderRefundedV1.ToBase(),
	}
}

// Start migrates the order tables and wires the lifecycle manager.
func (m *OrderModule) Start(_ context.Context) error {
	if m.db == nil {
		return errors.New("order module requires a database")
	}
	if m.stock == nil {
		return errors.New("catalog dependency not set")
	}
	if m.payments == nil {
		return errors.New("payment dependency not set")
	}
	if m.eventBus == nil {
		log.Println("[order] Warning: eventBus not set, events will not be published")
	}

	repo := NewRepository(m.db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	numbers, err := domain.NewNumberGenerator()
	if err != nil {
		return err
	}
	m.service = NewService(repo, m.stock, m.payments, m.calc, numbers)

	log.Println("[order] Module started (depends on: catalog, payment)")
	return nil
}

// Stop shuts down the module.
func (m *OrderModule) Stop(_ context.Context) error {
	log.Println("[order] Module stopped")
	return nil
}

// Health reports database connectivity.
func (m *OrderModule) Health(_ context.Context) mono.HealthStatus {
	if err := database.Ping(m.db); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *OrderModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-order", json.Unmarshal, json.Marshal, m.createOrder,
	); err != nil {
		return fmt.Errorf("failed to register create-order service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-orders", json.Unmarshal, json.Marshal, m.listOrders,
	); err != nil {
		return fmt.Errorf("failed to register list-orders service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-order", json.Unmarshal, json.Marshal, m.getOrder,
	); err != nil {
		return fmt.Errorf("failed to register get-order service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-order-status", json.Unmarshal, json.Marshal, m.updateOrderStatus,
	); err != nil {
		return fmt.Errorf("failed to register update-order-status service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "cancel-order", json.Unmarshal, json.Marshal, m.cancelOrder,
	); err != nil {
		return fmt.Errorf("failed to register cancel-order service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "confirm-payment", json.Unmarshal, json.Marshal, m.confirmPayment,
	); err != nil {
		return fmt.Errorf("failed to register confirm-payment service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "fail-payment", json.Unmarshal, json.Marshal, m.failPayment,
	); err != nil {
		return fmt.Errorf("failed to register fail-payment service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refund-order", json.Unmarshal, json.Marshal, m.refundOrder,
	); err != nil {
		return fmt.Errorf("failed to register refund-order service: %w", err)
	}

	log.Println("[order] Registered services: create-order, list-orders, get-order, update-order-status, cancel-order, confirm-payment, fail-payment, refund-order")
	return nil
}

func (m *OrderModule) createOrder(ctx context.Context, req CreateOrderRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.CreateOrder(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}
	log.Printf("[order] Order %s placed by user %s (total %s, %s)", o.Number, o.UserID, o.Total.StringFixed(2), o.Payment.Method)

	evt := events.OrderPlacedEvent{
		OrderRef:        orderRef(o),
		Items:           eventItems(o),
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		Shipping:        o.ShippingCost,
		Discount:        o.Discount,
		Total:           o.Total,
		PaymentMethod:   string(o.Payment.Method),
		PaymentStatus:   string(o.Payment.Status),
		ShippingAddress: formatAddress(o.ShippingAddress),
		PlacedAt:        o.CreatedAt,
	}
	m.emit("OrderPlaced", o, func(bus mono.EventBus) error {
		return events.OrderPlacedV1.Publish(bus, evt, nil)
	})

	return toOrderResponse(o), nil
}

func (m *OrderModule) listOrders(ctx context.Context, req ListOrdersRequest, _ *mono.Msg) (ListOrdersResponse, error) {
	orders, err := m.service.ListOrders(ctx, req.UserID)
	if err != nil {
		return ListOrdersResponse{}, err
	}
	resp := ListOrdersResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	return resp, nil
}

func (m *OrderModule) getOrder(ctx context.Context, req GetOrderRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.GetOrder(ctx, req.ID, req.Actor)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(o), nil
}

func (m *OrderModule) updateOrderStatus(ctx context.Context, req UpdateStatusRequest, _ *mono.Msg) (OrderResponse, error) {
	change, err := m.service.UpdateStatus(ctx, req)
	if change == nil {
		return OrderResponse{}, err
	}

	if change.Cancel != nil {
		m.publishCancelled(change.Cancel, req.Note)
		if err != nil {
			return OrderResponse{}, err
		}
		return toOrderResponse(change.Order), nil
	}

	o := change.Order
	log.Printf("[order] Order %s moved %s -> %s by %s", o.Number, change.From, o.Status, req.Actor.Role)
	evt := events.OrderStatusChangedEvent{
		OrderRef:          orderRef(o),
		From:              string(change.From),
		To:                string(o.Status),
		Carrier:           o.Tracking.Carrier,
		TrackingNumber:    o.Tracking.TrackingNumber,
		EstimatedDelivery: o.Tracking.EstimatedDelivery,
		Note:              req.Note,
		ChangedAt:         o.UpdatedAt,
	}
	m.emit("OrderStatusChanged", o, func(bus mono.EventBus) error {
		return events.OrderStatusChangedV1.Publish(bus, evt, nil)
	})

	return toOrderResponse(o), nil
}

func (m *OrderModule) cancelOrder(ctx context.Context, req CancelOrderRequest, _ *mono.Msg) (CancelOrderResponse, error) {
	res, err := m.service.CancelOrder(ctx, req.ID, req.Actor, req.Reason)
	if res == nil {
		return CancelOrderResponse{}, err
	}
	m.publishCancelled(res, req.Reason)
	if err != nil {
		log.Printf("[order] Order %s cancelled but refund failed: %v", res.Order.Number, err)
		return CancelOrderResponse{}, err
	}
	return CancelOrderResponse{Order: toOrderResponse(res.Order), Refunded: res.Refunded}, nil
}

func (m *OrderModule) confirmPayment(ctx context.Context, req ConfirmPaymentRequest, _ *mono.Msg) (OrderResponse, error) {
	o, changed, err := m.service.ConfirmPayment(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}
	if changed {
		log.Printf("[order] Payment %s confirmed for order %s", o.Payment.TransactionID, o.Number)
		evt := events.PaymentConfirmedEvent{
			OrderRef:      orderRef(o),
			TransactionID: o.Payment.TransactionID,
			Amount:        o.Total,
			PaidAt:        *o.Payment.PaidAt,
		}
		m.emit("PaymentConfirmed", o, func(bus mono.EventBus) error {
			return events.PaymentConfirmedV1.Publish(bus, evt, nil)
		})
	}
	return toOrderResponse(o), nil
}

func (m *OrderModule) failPayment(ctx context.Context, req FailPaymentRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.FailPayment(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}
	log.Printf("[order] Payment failed for order %s: %s", o.Number, req.Reason)
	evt := events.PaymentFailedEvent{
		OrderRef: orderRef(o),
		Reason:   req.Reason,
		Amount:   o.Total,
		FailedAt: o.UpdatedAt,
	}
	m.emit("PaymentFailed", o, func(bus mono.EventBus) error {
		return events.PaymentFailedV1.Publish(bus, evt, nil)
	})
	return toOrderResponse(o), nil
}

func (m *OrderModule) refundOrder(ctx context.Context, req RefundOrderRequest, _ *mono.Msg) (OrderResponse, error) {
	o, err := m.service.RefundOrder(ctx, req)
	if err != nil {
		return OrderResponse{}, err
	}
	m.publishRefunded(o)
	return toOrderResponse(o), nil
}

func (m *OrderModule) publishCancelled(res *CancelResult, reason string) {
	o := res.Order
	evt := events.OrderCancelledEvent{
		OrderRef:     orderRef(o),
		Reason:       reason,
		Refunded:     res.Refunded,
		RefundAmount: decimal.Zero,
		CancelledAt:  o.UpdatedAt,
	}
	if res.Refunded {
		evt.RefundAmount = o.Refund.Amount.Decimal
	}
	log.Printf("[order] Order %s cancelled (refunded: %t)", o.Number, res.Refunded)
	m.emit("OrderCancelled", o, func(bus mono.EventBus) error {
		return events.OrderCancelledV1.Publish(bus, evt, nil)
	})
	if res.Refunded {
		m.publishRefunded(o)
	}
}

func (m *OrderModule) publishRefunded(o *domain.Order) {
	at := o.UpdatedAt
	if o.Refund.RefundedAt != nil {
		at = *o.Refund.RefundedAt
	}
	log.Printf("[order] Order %s refunded (%s)", o.Number, o.Refund.RefundID)
	evt := events.OrderRefundedEvent{
		OrderRef:   orderRef(o),
		RefundID:   o.Refund.RefundID,
		Amount:     o.Refund.Amount.Decimal,
		Reason:     o.Refund.Reason,
		RefundedAt: at,
	}
	m.emit("OrderRefunded", o, func(bus mono.EventBus) error {
		return events.OrderRefundedV1.Publish(bus, evt, nil)
	})
}

// emit publishes best-effort: the order change has already committed.
func (m *OrderModule) emit(name string, o *domain.Order, publish func(mono.EventBus) error) {
	if m.eventBus == nil {
		return
	}
	if err := publish(m.eventBus); err != nil {
		log.Printf("[order] Warning: failed to publish %s for order %s: %v", name, o.Number, err)
	}
}

func formatAddress(a domain.Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.ZipCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
