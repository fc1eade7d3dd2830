package checkout

import (
	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"
	"go-storefront/internal/shared/helper"

	"github.com/shopspring/decimal"
)

// Totals are kept at full precision. Round only through Display.
type Totals struct {
	// Gross is the sum of unit price × quantity before product discounts.
	Gross decimal.Decimal
	// ItemDiscount is what product discounts took off Gross.
	ItemDiscount decimal.Decimal
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// CalculateTotals prices items and applies at most one coupon.
// Discount never exceeds Subtotal and Total is never negative.
func CalculateTotals(items []cart.CartItem, applied *coupon.Coupon) Totals {
	gross := decimal.Zero
	subtotal := decimal.Zero
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		gross = gross.Add(it.Price().Mul(qty))
		subtotal = subtotal.Add(it.LineTotal())
	}

	discount := CouponDiscount(applied, subtotal)
	return Totals{
		Gross:        gross,
		ItemDiscount: helper.NonNegative(gross.Sub(subtotal)),
		Subtotal:     subtotal,
		Discount:     discount,
		Total:        helper.NonNegative(subtotal.Sub(discount)),
	}
}

// CouponDiscount is the amount c takes off subtotal, in [0, subtotal].
func CouponDiscount(c *coupon.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.DiscountType {
	case coupon.DiscountPercentage:
		d = subtotal.Mul(helper.Percent(helper.ClampPercent(c.DiscountValue)))
	case coupon.DiscountFixed:
		d = helper.NonNegative(c.DiscountValue)
	default:
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// Display rounds every amount to cents.
func (t Totals) Display() Totals {
	return Totals{
		Gross:        t.Gross.Round(2),
		ItemDiscount: t.ItemDiscount.Round(2),
		Subtotal:     t.Subtotal.Round(2),
		Discount:     t.Discount.Round(2),
		Total:        t.Total.Round(2),
	}
}
