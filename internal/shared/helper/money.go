package helper

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =======================
// DECIMAL
// =======================

func DecimalPtrValue(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Percent returns value/100 without rounding.
func Percent(value decimal.Decimal) decimal.Decimal {
	return value.Div(hundred)
}

// ClampPercent bounds a percentage to [0,100].
func ClampPercent(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	if value.GreaterThan(hundred) {
		return hundred
	}
	return value
}

// NonNegative floors d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatMoney is for display only; calculations keep full precision.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// =======================
// STRING
// =======================

func StringPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StringPtr(s string) *string {
	return &s
}
