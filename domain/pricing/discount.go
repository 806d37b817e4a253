package pricing

import "github.com/shopspring/decimal"

// DiscountPolicy resolves a coupon code into a discount amount.
// Implementations must be deterministic for a given coupon and subtotal.
type DiscountPolicy interface {
	Discount(coupon string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// NoDiscount grants nothing. Coupon codes are still recorded on the order.
type NoDiscount struct{}

func (NoDiscount) Discount(string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// DiscountFunc adapts a function to DiscountPolicy.
type DiscountFunc func(coupon string, subtotal decimal.Decimal) (decimal.Decimal, error)

func (f DiscountFunc) Discount(coupon string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	return f(coupon, subtotal)
}
