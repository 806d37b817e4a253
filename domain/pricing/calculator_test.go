package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_FreeShippingScenario(t *testing.T) {
	calc := DefaultCalculator()

	totals, err := calc.Compute([]Item{{UnitPrice: dec("500"), Quantity: 2}}, "")
	require.NoError(t, err)

	assert.Equal(t, "1000", totals.Subtotal.String())
	assert.Equal(t, "0", totals.Shipping.String())
	assert.Equal(t, "180", totals.Tax.String())
	assert.Equal(t, "0", totals.Discount.String())
	assert.Equal(t, "1180", totals.Total.String())
	assert.True(t, totals.Balanced())
}

func TestCompute_ShippingThreshold(t *testing.T) {
	calc := DefaultCalculator()

	tests := []struct {
		name     string
		price    string
		shipping string
	}{
		{"well below", "10", "100"},
		{"one minor unit below", "999.99", "100"},
		{"exactly at", "1000", "0"},
		{"above", "1000.01", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := calc.Compute([]Item{{UnitPrice: dec(tt.price), Quantity: 1}}, "")
			require.NoError(t, err)
			assert.True(t, totals.Shipping.Equal(dec(tt.shipping)), "shipping = %s", totals.Shipping)
		})
	}
}

func TestCompute_TaxRoundingAtMinorUnit(t *testing.T) {
	calc := DefaultCalculator()

	tests := []struct {
		subtotal string
		tax      string
	}{
		{"0.01", "0"},     // 0.0018
		{"0.03", "0.01"},  // 0.0054
		{"0.05", "0.01"},  // 0.009
		{"10.25", "1.85"}, // 1.845 rounds half up
		{"10.24", "1.84"}, // 1.8432
		{"99.99", "18"},   // 17.9982
		{"123.45", "22.22"},
	}

	for _, tt := range tests {
		t.Run(tt.subtotal, func(t *testing.T) {
			totals, err := calc.Compute([]Item{{UnitPrice: dec(tt.subtotal), Quantity: 1}}, "")
			require.NoError(t, err)
			assert.True(t, totals.Tax.Equal(dec(tt.tax)), "tax = %s, want %s", totals.Tax, tt.tax)
			assert.LessOrEqual(t, totals.Tax.Exponent(), int32(0))
			assert.GreaterOrEqual(t, totals.Tax.Exponent(), int32(-MinorUnitPlaces))
		})
	}
}

func TestCompute_EmptyItems(t *testing.T) {
	calc := DefaultCalculator()

	totals, err := calc.Compute(nil, "")
	require.NoError(t, err)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Shipping.Equal(dec("100")))
	assert.True(t, totals.Total.Equal(totals.Shipping))

	calc.FreeShippingThreshold = decimal.Zero
	totals, err = calc.Compute(nil, "")
	require.NoError(t, err)
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestCompute_RejectsBadItems(t *testing.T) {
	calc := DefaultCalculator()

	_, err := calc.Compute([]Item{{UnitPrice: dec("10"), Quantity: 0}}, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = calc.Compute([]Item{{UnitPrice: dec("-1"), Quantity: 1}}, "")
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestCompute_CouponWithoutPolicyIsZero(t *testing.T) {
	calc := DefaultCalculator()

	totals, err := calc.Compute([]Item{{UnitPrice: dec("200"), Quantity: 1}}, "WELCOME10")
	require.NoError(t, err)
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Balanced())
}

func TestCompute_PluggableDiscount(t *testing.T) {
	calc := DefaultCalculator()
	calc.Discounts = DiscountFunc(func(coupon string, subtotal decimal.Decimal) (decimal.Decimal, error) {
		if coupon == "FLAT50" {
			return dec("50"), nil
		}
		if coupon == "EVERYTHING" {
			return dec("100000"), nil
		}
		if coupon == "BROKEN" {
			return decimal.Zero, errors.New("coupon service down")
		}
		return decimal.Zero, nil
	})

	totals, err := calc.Compute([]Item{{UnitPrice: dec("500"), Quantity: 2}}, "FLAT50")
	require.NoError(t, err)
	assert.Equal(t, "1130", totals.Total.String())
	assert.True(t, totals.Balanced())

	totals, err = calc.Compute([]Item{{UnitPrice: dec("10"), Quantity: 1}}, "EVERYTHING")
	require.NoError(t, err)
	assert.True(t, totals.Total.IsZero())
	assert.True(t, totals.Balanced())

	_, err = calc.Compute([]Item{{UnitPrice: dec("10"), Quantity: 1}}, "BROKEN")
	assert.Error(t, err)
}

func TestCompute_TotalAlwaysBalances(t *testing.T) {
	calc := DefaultCalculator()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		items := make([]Item, 0, n)
		for j := 0; j < n; j++ {
			items = append(items, Item{
				UnitPrice: decimal.New(rng.Int63n(500000), -2),
				Quantity:  1 + rng.Intn(5),
			})
		}

		totals, err := calc.Compute(items, "")
		require.NoError(t, err)
		require.True(t, totals.Balanced(), "unbalanced totals for %+v: %+v", items, totals)
		if totals.Subtotal.LessThan(calc.FreeShippingThreshold) {
			require.True(t, totals.Shipping.Equal(calc.FlatShippingFee))
		} else {
			require.True(t, totals.Shipping.IsZero())
		}
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(118000), ToMinorUnits(dec("1180")))
	assert.Equal(t, int64(1185), ToMinorUnits(dec("11.845")))
	assert.Equal(t, int64(1), ToMinorUnits(dec("0.01")))
	assert.True(t, FromMinorUnits(118000).Equal(dec("1180")))
}
