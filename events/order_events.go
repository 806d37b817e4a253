package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
	"github.com/shopspring/decimal"
)

// OrderRef identifies the order and the customer to notify.
type OrderRef struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	UserID        string `json:"user_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
}

// OrderItem is a line item as rendered in notifications.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Color       string          `json:"color"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderPlacedEvent is emitted once an order has been persisted.
type OrderPlacedEvent struct {
	OrderRef
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	ShippingAddress string          `json:"shipping_address"`
	PlacedAt        time.Time       `json:"placed_at"`
}

// OrderPlacedV1 is the typed event definition for order creation.
// Subject: events.order.v1.order-placed
var OrderPlacedV1 = helper.EventDefinition[OrderPlacedEvent](
	"order", "OrderPlaced", "v1",
)

// OrderStatusChangedEvent is emitted on every fulfillment transition except cancellation.
type OrderStatusChangedEvent struct {
	OrderRef
	From              string     `json:"from"`
	To                string     `json:"to"`
	Carrier           string     `json:"carrier,omitempty"`
	TrackingNumber    string     `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Note              string     `json:"note,omitempty"`
	ChangedAt         time.Time  `json:"changed_at"`
}

// OrderStatusChangedV1 is the typed event definition for status updates.
var OrderStatusChangedV1 = helper.EventDefinition[OrderStatusChangedEvent](
	"order", "OrderStatusChanged", "v1",
)

// OrderCancelledEvent is emitted after a cancellation commits.
type OrderCancelledEvent struct {
	OrderRef
	Reason       string          `json:"reason,omitempty"`
	Refunded     bool            `json:"refunded"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	CancelledAt  time.Time       `json:"cancelled_at"`
}

// OrderCancelledV1 is the typed event definition for cancellation.
var OrderCancelledV1 = helper.EventDefinition[OrderCancelledEvent](
	"order", "OrderCancelled", "v1",
)

// PaymentConfirmedEvent is emitted when a gateway payment is recorded.
type PaymentConfirmedEvent struct {
	OrderRef
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// PaymentConfirmedV1 is the typed event definition for successful payments.
var PaymentConfirmedV1 = helper.EventDefinition[PaymentConfirmedEvent](
	"order", "PaymentConfirmed", "v1",
)

// PaymentFailedEvent is emitted when the client reports a failed payment.
type PaymentFailedEvent struct {
	OrderRef
	Reason   string          `json:"reason,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	FailedAt time.Time       `json:"failed_at"`
}

// PaymentFailedV1 is the typed event definition for failed payments.
var PaymentFailedV1 = helper.EventDefinition[PaymentFailedEvent](
	"order", "PaymentFailed", "v1",
)

// OrderRefundedEvent is emitted after the gateway accepts a refund.
type OrderRefundedEvent struct {
	OrderRef
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
}

// OrderRefundedV1 is the typed event definition for refunds.
var OrderRefundedV1 = helper.EventDefinition[OrderRefundedEvent](
	"order", "OrderRefunded", "v1",
)
