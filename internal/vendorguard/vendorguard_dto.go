package vendorguard

import (
	"go-storefront/internal/cart"
	"go-storefront/internal/session"
)

type DecisionResponse struct {
	State          State                   `json:"state"`
	PendingProduct *session.PendingProduct `json:"pendingProduct"`
	Cart           *cart.CartResponse      `json:"cart,omitempty"`
}

func ToResponse(d Decision, pending []string) DecisionResponse {
	res := DecisionResponse{State: d.State, PendingProduct: d.Pending}
	if d.Cart != nil {
		c := cart.ToResponse(*d.Cart, pending)
		res.Cart = &c
	}
	return res
}
