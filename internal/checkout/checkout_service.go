// Package checkout prices the cart with the applied coupon and asks the
// marketplace for a payment session.
package checkout

import (
	"context"
	"strings"

	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/messaging/kafka/producer"
	"go-storefront/internal/pkg/metrics"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/helper"
	"go-storefront/internal/shared/inflight"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const OpCheckout = "checkout"

type Summary struct {
	Cart        cart.Snapshot
	Totals      Totals
	Coupon      *coupon.Coupon
	CouponError string
	// false when the cart shrank below the applied coupon's minimum after
	// it was selected. The marketplace decides at checkout.
	CouponEligible bool
}

type InitiateRequest struct {
	CouponCode string `json:"couponCode"`
}

type Result struct {
	PaymentURL     string
	CouponCode     string
	IdempotencyKey string
}

// InitiatedPayload is the body of the CHECKOUT_INITIATED event.
type InitiatedPayload struct {
	UserID         string `json:"user_id"`
	CartID         string `json:"cart_id"`
	VendorID       string `json:"vendor_id"`
	CouponCode     string `json:"coupon_code,omitempty"`
	Subtotal       string `json:"subtotal"`
	Discount       string `json:"discount"`
	Total          string `json:"total"`
	PaymentURL     string `json:"payment_url"`
	IdempotencyKey string `json:"idempotency_key"`
}

type Service interface {
	Summary(ctx context.Context, id session.Identity) (Summary, error)
	// Initiate uses the applied coupon when req carries no code. A failure
	// leaves the cart untouched and may be retried with the same key.
	Initiate(ctx context.Context, id session.Identity, req InitiateRequest, idempotencyKey string) (Result, error)
}

type Deps struct {
	Client    marketplace.Client
	Cart      cart.Service
	Coupons   coupon.Service
	Publisher producer.Publisher
	Tracker   *inflight.Tracker
	Logger    *zap.Logger
}

type service struct {
	client    marketplace.Client
	cart      cart.Service
	coupons   coupon.Service
	publisher producer.Publisher
	tracker   *inflight.Tracker
	logger    *zap.Logger
}

func NewService(d Deps) Service {
	if d.Publisher == nil {
		d.Publisher = producer.Noop{}
	}
	if d.Tracker == nil {
		d.Tracker = inflight.NewTracker()
	}
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	return &service{
		client:    d.Client,
		cart:      d.Cart,
		coupons:   d.Coupons,
		publisher: d.Publisher,
		tracker:   d.Tracker,
		logger:    d.Logger.Named("checkout.service"),
	}
}

func (s *service) Summary(ctx context.Context, id session.Identity) (Summary, error) {
	snap, err := s.cart.Detail(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	sel, err := s.coupons.Selection(ctx, id.UserID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Cart:           snap,
		Totals:         CalculateTotals(snap.Cart.Items, sel.Applied),
		Coupon:         sel.Applied,
		CouponError:    sel.Error,
		CouponEligible: true,
	}
	if sel.Applied != nil {
		if msg := sel.Applied.MinimumMessage(sum.Totals.Subtotal); msg != "" {
			sum.CouponEligible = false
			sum.CouponError = msg
		}
	}
	return sum, nil
}

func (s *service) Initiate(ctx context.Context, id session.Identity, req InitiateRequest, idempotencyKey string) (Result, error) {
	if id.UserID == "" {
		return Result{}, cart.ErrMissingSession
	}

	done, err := s.tracker.Begin(id.UserID, OpCheckout)
	if err != nil {
		return Result{}, err
	}
	defer done()

	sum, err := s.Summary(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if sum.Cart.Cart.IsEmpty() {
		return Result{}, ErrCartEmpty
	}
	if !sum.Cart.Cart.SingleVendor() {
		return Result{}, ErrMixedVendors
	}

	code := strings.TrimSpace(req.CouponCode)
	if code == "" && sum.Coupon != nil {
		code = sum.Coupon.Code
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	sess, err := s.client.InitiateCheckout(ctx, id.AccessToken, marketplace.CheckoutRequest{CouponCode: code}, idempotencyKey)
	metrics.CheckoutInitiations.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Warn("checkout initiation failed",
			zap.String("user_id", id.UserID),
			zap.String("idempotency_key", idempotencyKey),
			zap.Error(err),
		)
		return Result{}, err
	}

	s.logger.Info("checkout initiated",
		zap.String("user_id", id.UserID),
		zap.String("cart_id", sum.Cart.Cart.ID),
		zap.String("coupon_code", code),
		zap.String("idempotency_key", idempotencyKey),
	)

	s.publishInitiated(ctx, id.UserID, sum, code, sess.PaymentURL, idempotencyKey)

	return Result{PaymentURL: sess.PaymentURL, CouponCode: code, IdempotencyKey: idempotencyKey}, nil
}

// publishInitiated never fails the checkout; the payment session already exists.
func (s *service) publishInitiated(ctx context.Context, userID string, sum Summary, code, paymentURL, key string) {
	ev, err := producer.NewEvent(producer.EventCheckoutInitiated, "cart", userID, InitiatedPayload{
		UserID:         userID,
		CartID:         sum.Cart.Cart.ID,
		VendorID:       sum.Cart.Cart.VendorID,
		CouponCode:     code,
		Subtotal:       helper.FormatMoney(sum.Totals.Subtotal),
		Discount:       helper.FormatMoney(sum.Totals.Discount),
		Total:          helper.FormatMoney(sum.Totals.Total),
		PaymentURL:     paymentURL,
		IdempotencyKey: key,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("publish checkout event failed", zap.String("user_id", userID), zap.Error(err))
	}
}
