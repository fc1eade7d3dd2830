package coupon

import (
	"strings"
	"time"

	"go-storefront/internal/marketplace"

	"github.com/shopspring/decimal"
)

type DiscountType string

// The marketplace names the fixed kind FIXED in some payloads and
// FIXED_AMOUNT in others; both map to DiscountFixed.
const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
)

func ParseDiscountType(s string) (DiscountType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERCENTAGE", "PERCENT":
		return DiscountPercentage, true
	case "FIXED", "FIXED_AMOUNT":
		return DiscountFixed, true
	default:
		return "", false
	}
}

type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	Description   string           `json:"description"`
	DiscountType  DiscountType     `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinPurchase   *decimal.Decimal `json:"minPurchase,omitempty"`
	StartDate     time.Time        `json:"startDate"`
	EndDate       time.Time        `json:"endDate"`
	IsActive      bool             `json:"isActive"`
}

// MeetsMinimum reports whether subtotal reaches the coupon's threshold.
// A coupon without a threshold always does.
func (c Coupon) MeetsMinimum(subtotal decimal.Decimal) bool {
	return c.MinPurchase == nil || subtotal.GreaterThanOrEqual(*c.MinPurchase)
}

// MinimumMessage is empty when subtotal reaches the threshold and the
// message shown to the user otherwise.
func (c Coupon) MinimumMessage(subtotal decimal.Decimal) string {
	if c.MeetsMinimum(subtotal) {
		return ""
	}
	return minPurchaseMessage(*c.MinPurchase)
}

func (c Coupon) ValidAt(t time.Time) bool {
	if !c.IsActive {
		return false
	}
	if !c.StartDate.IsZero() && t.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && t.After(c.EndDate) {
		return false
	}
	return true
}

// FromRemote maps a marketplace coupon. Coupons with a discount type we do
// not understand are reported as not ok and must be skipped.
func FromRemote(mc marketplace.Coupon) (Coupon, bool) {
	kind, ok := ParseDiscountType(mc.DiscountType)
	if !ok {
		return Coupon{}, false
	}
	return Coupon{
		ID:            mc.ID,
		Code:          mc.Code,
		Description:   mc.Description,
		DiscountType:  kind,
		DiscountValue: mc.DiscountValue,
		MinPurchase:   mc.MinPurchase,
		StartDate:     mc.StartDate,
		EndDate:       mc.EndDate,
		IsActive:      mc.IsActive,
	}, true
}

// Selection is the single applied coupon of a user plus the last
// validation message shown next to the coupon list.
type Selection struct {
	Applied *Coupon `json:"applied"`
	Error   string  `json:"error,omitempty"`
}

// Select applies c in place of any current coupon. When the subtotal does
// not reach c's minimum purchase, the current coupon is kept, the message
// is recorded and ErrMinPurchaseNotMet is returned.
func Select(current Selection, c Coupon, subtotal decimal.Decimal) (Selection, error) {
	if !c.MeetsMinimum(subtotal) {
		return Selection{
			Applied: current.Applied,
			Error:   minPurchaseMessage(*c.MinPurchase),
		}, ErrMinPurchaseNotMet
	}

	applied := c
	return Selection{Applied: &applied}, nil
}

func Clear() Selection {
	return Selection{}
}

func minPurchaseMessage(min decimal.Decimal) string {
	return "Minimum purchase of " + min.StringFixed(2) + " required for this coupon"
}
