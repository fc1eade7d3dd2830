package coupon

import (
	"time"

	"go-storefront/internal/shared/helper"
)

type CouponResponse struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue string  `json:"discountValue"`
	MinPurchase   *string `json:"minPurchase"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	Eligible      *bool   `json:"eligible,omitempty"`
}

type SelectionResponse struct {
	Applied *CouponResponse `json:"applied"`
	Error   string          `json:"error"`
}

type AvailableResponse struct {
	Coupons   []CouponResponse  `json:"coupons"`
	Subtotal  string            `json:"subtotal"`
	Selection SelectionResponse `json:"selection"`
}

func toCouponResponse(c Coupon) CouponResponse {
	var min *string
	if c.MinPurchase != nil {
		min = helper.StringPtr(helper.FormatMoney(*c.MinPurchase))
	}
	res := CouponResponse{
		ID:            c.ID,
		Code:          c.Code,
		Description:   c.Description,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue.String(),
		MinPurchase:   min,
	}
	if !c.StartDate.IsZero() {
		res.StartDate = c.StartDate.Format(time.RFC3339)
	}
	if !c.EndDate.IsZero() {
		res.EndDate = c.EndDate.Format(time.RFC3339)
	}
	return res
}

func ToSelectionResponse(s Selection) SelectionResponse {
	res := SelectionResponse{Error: s.Error}
	if s.Applied != nil {
		c := toCouponResponse(*s.Applied)
		res.Applied = &c
	}
	return res
}

func ToAvailableResponse(a Available) AvailableResponse {
	coupons := make([]CouponResponse, 0, len(a.Coupons))
	for _, o := range a.Coupons {
		c := toCouponResponse(o.Coupon)
		eligible := o.Eligible
		c.Eligible = &eligible
		coupons = append(coupons, c)
	}
	return AvailableResponse{
		Coupons:   coupons,
		Subtotal:  helper.FormatMoney(a.Subtotal),
		Selection: ToSelectionResponse(a.Selection),
	}
}
