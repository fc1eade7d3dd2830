// Package coupon lists the coupons the marketplace currently offers and
// keeps the user's single applied coupon. Selection is local state; the
// marketplace only sees the code at checkout.
package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-storefront/internal/cart"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/pkg/metrics"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/statestore"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Available struct {
	Coupons   []Offer
	Subtotal  decimal.Decimal
	Selection Selection
}

// Offer is a coupon together with whether the current cart qualifies.
type Offer struct {
	Coupon   Coupon
	Eligible bool
}

type ApplyRequest struct {
	CouponID string `json:"couponId"`
	Code     string `json:"code"`
}

type Service interface {
	Available(ctx context.Context, id session.Identity) (Available, error)
	Apply(ctx context.Context, id session.Identity, req ApplyRequest) (Selection, error)
	Selection(ctx context.Context, userID string) (Selection, error)
	Clear(ctx context.Context, userID string) (Selection, error)
}

type Deps struct {
	Client   marketplace.Client
	Cart     cart.Service
	Store    statestore.Store[Selection]
	Sessions session.Manager
	Logger   *zap.Logger
}

type service struct {
	client   marketplace.Client
	cart     cart.Service
	store    statestore.Store[Selection]
	sessions session.Manager
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(d Deps) Service {
	if d.Store == nil {
		d.Store = statestore.NewMemory[Selection]()
	}
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	return &service{
		client:   d.Client,
		cart:     d.Cart,
		store:    d.Store,
		sessions: d.Sessions,
		logger:   d.Logger.Named("coupon.service"),
		now:      time.Now,
	}
}

func (s *service) list(ctx context.Context, token string) ([]Coupon, error) {
	remote, err := s.client.ListCoupons(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Coupon, 0, len(remote))
	for _, rc := range remote {
		c, ok := FromRemote(rc)
		if !ok {
			s.logger.Warn("skipping coupon with unknown discount type",
				zap.String("coupon_id", rc.ID),
				zap.String("discount_type", rc.DiscountType),
			)
			continue
		}
		// the marketplace already filters; this only guards clock skew
		if !c.ValidAt(now) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *service) subtotal(ctx context.Context, id session.Identity) (decimal.Decimal, error) {
	snap, err := s.cart.Detail(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.Cart.Subtotal(), nil
}

func (s *service) Available(ctx context.Context, id session.Identity) (Available, error) {
	coupons, err := s.list(ctx, id.AccessToken)
	if err != nil {
		return Available{}, err
	}
	subtotal, err := s.subtotal(ctx, id)
	if err != nil {
		return Available{}, err
	}
	sel, err := s.store.Get(ctx, id.UserID)
	if err != nil {
		return Available{}, err
	}

	offers := make([]Offer, 0, len(coupons))
	for _, c := range coupons {
		offers = append(offers, Offer{Coupon: c, Eligible: c.MeetsMinimum(subtotal)})
	}
	return Available{Coupons: offers, Subtotal: subtotal, Selection: sel}, nil
}

func (s *service) Apply(ctx context.Context, id session.Identity, req ApplyRequest) (Selection, error) {
	if strings.TrimSpace(req.CouponID) == "" && strings.TrimSpace(req.Code) == "" {
		return Selection{}, ErrCouponRequired
	}

	coupons, err := s.list(ctx, id.AccessToken)
	if err != nil {
		return Selection{}, err
	}
	c, ok := find(coupons, req)
	if !ok {
		return Selection{}, ErrCouponNotAvailable
	}

	subtotal, err := s.subtotal(ctx, id)
	if err != nil {
		return Selection{}, err
	}

	var selectErr error
	sel, err := s.store.Update(ctx, id.UserID, func(cur *Selection) error {
		next, err := Select(*cur, c, subtotal)
		*cur = next
		selectErr = err
		return nil
	})
	if err != nil {
		return Selection{}, err
	}

	metrics.CouponSelections.WithLabelValues(metrics.Result(selectErr)).Inc()
	if selectErr != nil {
		s.logger.Debug("coupon rejected",
			zap.String("user_id", id.UserID),
			zap.String("code", c.Code),
			zap.String("subtotal", subtotal.String()),
		)
		return sel, selectErr
	}

	s.publish(id.UserID, sel)
	return sel, nil
}

func (s *service) Selection(ctx context.Context, userID string) (Selection, error) {
	return s.store.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID string) (Selection, error) {
	sel, err := s.store.Update(ctx, userID, func(cur *Selection) error {
		*cur = Clear()
		return nil
	})
	if err != nil {
		return Selection{}, err
	}
	s.publish(userID, sel)
	return sel, nil
}

func (s *service) publish(userID string, sel Selection) {
	if s.sessions == nil {
		return
	}
	s.sessions.Publish(userID, session.Event{Type: session.EventCouponChanged, Data: sel})
}

func find(coupons []Coupon, req ApplyRequest) (Coupon, bool) {
	for _, c := range coupons {
		if req.CouponID != "" && c.ID == req.CouponID {
			return c, true
		}
		if req.Code != "" && strings.EqualFold(c.Code, strings.TrimSpace(req.Code)) {
			return c, true
		}
	}
	return Coupon{}, false
}

// IsRejected reports a local validation rejection as opposed to a failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrMinPurchaseNotMet)
}
