// Package ui serves the explicit storefront UI state: cart panel
// visibility, the vendor-conflict alert, in-flight operation keys and the
// applied coupon, plus a server-sent-event stream of changes.
package ui

import (
	"context"

	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"
	"go-storefront/internal/session"
)

type View struct {
	State     session.State
	Pending   []string
	Selection coupon.Selection
}

type Service interface {
	View(ctx context.Context, userID string) (View, error)
	SetCartPanel(ctx context.Context, userID string, open bool) (View, error)
	Events(userID string) (<-chan session.Event, func())
}

type Deps struct {
	Sessions session.Manager
	Cart     cart.Service
	Coupons  coupon.Service
}

type service struct {
	sessions session.Manager
	cart     cart.Service
	coupons  coupon.Service
}

func NewService(d Deps) Service {
	return &service{sessions: d.Sessions, cart: d.Cart, coupons: d.Coupons}
}

func (s *service) View(ctx context.Context, userID string) (View, error) {
	st, err := s.sessions.State(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, userID, st)
}

func (s *service) SetCartPanel(ctx context.Context, userID string, open bool) (View, error) {
	st, err := s.sessions.SetCartOpen(ctx, userID, open)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, userID, st)
}

func (s *service) Events(userID string) (<-chan session.Event, func()) {
	return s.sessions.Subscribe(userID)
}

func (s *service) view(ctx context.Context, userID string, st session.State) (View, error) {
	sel, err := s.coupons.Selection(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return View{State: st, Pending: s.cart.Pending(userID), Selection: sel}, nil
}
