package ui

import (
	"go-storefront/internal/coupon"
	"go-storefront/internal/session"
)

type CartPanelRequest struct {
	Open *bool `json:"open" binding:"required"`
}

type StateResponse struct {
	CartOpen       bool                     `json:"cartOpen"`
	VendorAlert    bool                     `json:"vendorAlert"`
	PendingProduct *session.PendingProduct  `json:"pendingProduct"`
	Pending        []string                 `json:"pending"`
	Coupon         coupon.SelectionResponse `json:"coupon"`
}

func ToStateResponse(v View) StateResponse {
	pending := v.Pending
	if pending == nil {
		pending = []string{}
	}
	return StateResponse{
		CartOpen:       v.State.CartOpen,
		VendorAlert:    v.State.VendorAlert,
		PendingProduct: v.State.Pending,
		Pending:        pending,
		Coupon:         coupon.ToSelectionResponse(v.Selection),
	}
}
