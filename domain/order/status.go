package order

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// PaymentStatus is tracked independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodUPI    PaymentMethod = "upi"
	MethodWallet PaymentMethod = "wallet"
	MethodCOD    PaymentMethod = "cod"
)

var (
	ErrUnknownStatus        = errors.New("unknown order status")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// transitions is the complete fulfillment state machine. Anything absent is illegal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusReturned},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// ParsePaymentMethod validates a payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MethodCard, MethodUPI, MethodWallet, MethodCOD:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

// Upfront reports whether the method is charged through the gateway at checkout.
func (m PaymentMethod) Upfront() bool {
	return m != MethodCOD
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the legal successors of s.
func NextStatuses(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

// Cancellable reports whether an order in s may be cancelled.
func Cancellable(s Status) bool {
	return CanTransition(s, StatusCancelled)
}

// ValidCombination reports whether fulfillment status s may coexist with
// payment status p for an order paid by method m.
func ValidCombination(s Status, p PaymentStatus, m PaymentMethod) bool {
	switch p {
	case PaymentFailed:
		return s == StatusPending || s == StatusCancelled
	case PaymentRefunded:
		return s == StatusCancelled || s == StatusReturned
	}

	switch s {
	case StatusPending, StatusCancelled:
		return p == PaymentPending || p == PaymentPaid
	case StatusConfirmed, StatusProcessing, StatusShipped:
		return p == PaymentPaid || (p == PaymentPending && m == MethodCOD)
	case StatusDelivered, StatusReturned:
		return p == PaymentPaid
	}
	return false
}
