// Package pricing computes order money fields. It is pure: no I/O, no clock.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places in the currency's minor unit.
const MinorUnitPlaces = 2

var (
	// ErrInvalidQuantity is returned when a line quantity is below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrNegativePrice is returned when a unit price is negative.
	ErrNegativePrice = errors.New("unit price must not be negative")
)

// Item is one priced line.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds the computed money fields of an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Balanced reports whether total == subtotal + tax + shipping - discount.
func (t Totals) Balanced() bool {
	return t.Total.Equal(t.Subtotal.Add(t.Tax).Add(t.Shipping).Sub(t.Discount))
}

// Calculator applies the tax, shipping and discount rules.
type Calculator struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Discounts             DiscountPolicy
}

// DefaultCalculator returns the 18% tax, free shipping from 1000, flat fee 100 rules.
func DefaultCalculator() Calculator {
	return Calculator{
		TaxRate:               decimal.RequireFromString("0.18"),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(100),
		Discounts:             NoDiscount{},
	}
}

// Compute prices the given items. Tax is rounded half-up to the minor unit;
// shipping is waived when the subtotal reaches the threshold.
func (c Calculator) Compute(items []Item, coupon string) (Totals, error) {
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity < 1 {
			return Totals{}, fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("item %d: %w", i, ErrNegativePrice)
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	tax := subtotal.Mul(c.TaxRate).Round(MinorUnitPlaces)

	shipping := c.FlatShippingFee
	if subtotal.GreaterThanOrEqual(c.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	policy := c.Discounts
	if policy == nil {
		policy = NoDiscount{}
	}
	discount, err := policy.Discount(coupon, subtotal)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to resolve discount: %w", err)
	}

	gross := subtotal.Add(tax).Add(shipping)
	switch {
	case discount.IsNegative():
		discount = decimal.Zero
	case discount.GreaterThan(gross):
		discount = gross
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    gross.Sub(discount),
	}, nil
}

// ToMinorUnits converts an amount to integer minor units (paise, cents).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnitPlaces).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to an amount.
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -MinorUnitPlaces)
}
