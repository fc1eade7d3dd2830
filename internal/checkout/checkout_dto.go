package checkout

import (
	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"
	"go-storefront/internal/shared/helper"
)

type TotalsResponse struct {
	Gross        string `json:"gross"`
	ItemDiscount string `json:"itemDiscount"`
	Subtotal     string `json:"subtotal"`
	Discount     string `json:"discount"`
	Total        string `json:"total"`
}

type SummaryResponse struct {
	Cart      cart.CartResponse        `json:"cart"`
	Totals    TotalsResponse           `json:"totals"`
	Selection coupon.SelectionResponse `json:"coupon"`
}

type InitiateResponse struct {
	PaymentURL string `json:"paymentUrl"`
}

func ToTotalsResponse(t Totals) TotalsResponse {
	d := t.Display()
	return TotalsResponse{
		Gross:        helper.FormatMoney(d.Gross),
		ItemDiscount: helper.FormatMoney(d.ItemDiscount),
		Subtotal:     helper.FormatMoney(d.Subtotal),
		Discount:     helper.FormatMoney(d.Discount),
		Total:        helper.FormatMoney(d.Total),
	}
}

func ToSummaryResponse(s Summary, pending []string) SummaryResponse {
	sel := coupon.ToSelectionResponse(coupon.Selection{Applied: s.Coupon, Error: s.CouponError})
	if sel.Applied != nil {
		eligible := s.CouponEligible
		sel.Applied.Eligible = &eligible
	}
	return SummaryResponse{
		Cart:      cart.ToResponse(s.Cart, pending),
		Totals:    ToTotalsResponse(s.Totals),
		Selection: sel,
	}
}
