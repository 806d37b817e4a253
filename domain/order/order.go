// Package order holds the order aggregate and its fulfillment/payment state machine.
package order

import (
	"strings"
	"time"

	"github.com/Div1912/stylehub-backend/domain/pricing"
	"github.com/Div1912/stylehub-backend/pkg/apperr"
	"github.com/shopspring/decimal"
)

// Address is a postal address snapshot.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

// Complete reports whether the fields needed for delivery are present.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Street) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.Country) != "" &&
		strings.TrimSpace(a.ZipCode) != ""
}

// LineItem is an ordered product variant with its price frozen at checkout.
type LineItem struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     string          `gorm:"not null;type:text;index"`
	ProductID   string          `gorm:"not null;type:text;index"`
	ProductName string          `gorm:"type:text"`
	Size        string          `gorm:"not null;type:text"`
	Color       string          `gorm:"not null;type:text"`
	Quantity    int             `gorm:"not null;check:quantity >= 1"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (LineItem) TableName() string {
	return "order_items"
}

// LineTotal returns unit price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// PaymentInfo is the payment sub-record.
type PaymentInfo struct {
	Method        PaymentMethod `gorm:"type:text;not null"`
	Status        PaymentStatus `gorm:"type:text;not null;index"`
	TransactionID string        `gorm:"type:text;index"`
	ClientSecret  string        `gorm:"type:text"`
	FailureReason string        `gorm:"type:text"`
	PaidAt        *time.Time
}

// TrackingInfo is set by fulfillment when the order ships.
type TrackingInfo struct {
	Carrier           string `gorm:"type:text"`
	TrackingNumber    string `gorm:"type:text"`
	EstimatedDelivery *time.Time
}

// RefundInfo records a completed gateway refund.
type RefundInfo struct {
	RefundID   string              `gorm:"type:text"`
	Amount     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	Reason     string              `gorm:"type:text"`
	RefundedAt *time.Time
}

// Order is the order aggregate. Money fields are fixed at creation;
// only the lifecycle methods below mutate it afterwards.
type Order struct {
	ID              string          `gorm:"primaryKey;type:text"`
	Number          string          `gorm:"uniqueIndex;not null;type:text"`
	UserID          string          `gorm:"not null;type:text;index"`
	CustomerEmail   string          `gorm:"type:text"`
	CustomerName    string          `gorm:"type:text"`
	Items           []LineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address         `gorm:"embedded;embeddedPrefix:billing_"`
	Payment         PaymentInfo     `gorm:"embedded;embeddedPrefix:payment_"`
	Status          Status          `gorm:"type:text;not null;index"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax             decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CouponCode      string          `gorm:"type:text"`
	Tracking        TrackingInfo    `gorm:"embedded;embeddedPrefix:tracking_"`
	Refund          RefundInfo      `gorm:"embedded;embeddedPrefix:refund_"`
	CancelReason    string          `gorm:"type:text"`
	ReturnReason    string          `gorm:"type:text"`
	Notes           string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"index"`
	UpdatedAt       time.Time
}

func (Order) TableName() string {
	return "orders"
}

// Totals returns the money fields.
func (o *Order) Totals() pricing.Totals {
	return pricing.Totals{
		Subtotal: o.Subtotal,
		Tax:      o.Tax,
		Shipping: o.ShippingCost,
		Discount: o.Discount,
		Total:    o.Total,
	}
}

// ApplyTotals copies computed totals onto the order.
func (o *Order) ApplyTotals(t pricing.Totals) {
	o.Subtotal = t.Subtotal
	o.Tax = t.Tax
	o.ShippingCost = t.Shipping
	o.Discount = t.Discount
	o.Total = t.Total
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// Transition moves the order along an edge of the state machine. A COD order
// becomes paid when it is delivered.
func (o *Order) Transition(to Status, now time.Time) error {
	if to == StatusCancelled {
		return o.Cancel("", now)
	}
	if !CanTransition(o.Status, to) {
		return apperr.InvalidTransition("cannot move order from %s to %s", o.Status, to)
	}

	payment := o.Payment.Status
	if to == StatusDelivered && o.Payment.Method == MethodCOD && payment == PaymentPending {
		payment = PaymentPaid
	}
	if !ValidCombination(to, payment, o.Payment.Method) {
		return apperr.InvalidState("order cannot be %s while payment is %s", to, payment)
	}

	if payment != o.Payment.Status {
		o.Payment.Status = payment
		o.Payment.PaidAt = &now
	}
	o.Status = to
	return nil
}

// Cancel is legal only from pending or confirmed.
func (o *Order) Cancel(reason string, _ time.Time) error {
	if !Cancellable(o.Status) {
		return apperr.InvalidState("order cannot be cancelled in status %s", o.Status)
	}
	o.Status = StatusCancelled
	if reason != "" {
		o.CancelReason = reason
	}
	return nil
}

// ConfirmPayment records a successful gateway payment and confirms the order.
// It reports false when the same transaction was already recorded.
func (o *Order) ConfirmPayment(transactionID string, now time.Time) (bool, error) {
	if o.Payment.Status == PaymentPaid && o.Payment.TransactionID == transactionID {
		return false, nil
	}
	if o.Status != StatusPending {
		return false, apperr.InvalidState("cannot confirm payment for order in status %s", o.Status)
	}
	if o.Payment.Status != PaymentPending && o.Payment.Status != PaymentFailed {
		return false, apperr.InvalidState("cannot confirm payment with payment status %s", o.Payment.Status)
	}

	o.Payment.Status = PaymentPaid
	o.Payment.TransactionID = transactionID
	o.Payment.FailureReason = ""
	o.Payment.PaidAt = &now
	o.Status = StatusConfirmed
	return true, nil
}

// FailPayment records a failed payment attempt; fulfillment stays pending.
func (o *Order) FailPayment(reason string) error {
	if o.Status != StatusPending {
		return apperr.InvalidState("cannot fail payment for order in status %s", o.Status)
	}
	if o.Payment.Status != PaymentPending && o.Payment.Status != PaymentFailed {
		return apperr.InvalidState("cannot fail payment with payment status %s", o.Payment.Status)
	}
	o.Payment.Status = PaymentFailed
	o.Payment.FailureReason = reason
	return nil
}

// CheckRefundable reports whether a gateway refund may be issued.
func (o *Order) CheckRefundable() error {
	if o.Payment.Status != PaymentPaid {
		return apperr.InvalidState("cannot refund order with payment status %s", o.Payment.Status)
	}
	if o.Payment.TransactionID == "" {
		return apperr.InvalidState("order has no gateway transaction to refund")
	}
	if !ValidCombination(o.Status, PaymentRefunded, o.Payment.Method) {
		return apperr.InvalidState("cannot refund order in status %s", o.Status)
	}
	return nil
}

// MarkRefunded records a completed refund.
func (o *Order) MarkRefunded(refundID string, amount decimal.Decimal, reason string, now time.Time) error {
	if err := o.CheckRefundable(); err != nil {
		return err
	}
	o.Payment.Status = PaymentRefunded
	o.Refund = RefundInfo{
		RefundID:   refundID,
		Amount:     decimal.NewNullDecimal(amount),
		Reason:     reason,
		RefundedAt: &now,
	}
	return nil
}
