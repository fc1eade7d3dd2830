package coupon_test

import (
	"context"
	"testing"
	"time"

	"go-storefront/internal/cart"
	"go-storefront/internal/coupon"
	"go-storefront/internal/marketplace"
	mockcart "go-storefront/internal/mock/cart"
	mockmarket "go-storefront/internal/mock/marketplace"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/statestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

var ident = session.Identity{UserID: "u1", AccessToken: "tok"}

func remoteCoupons() []marketplace.Coupon {
	now := time.Now()
	window := func(c marketplace.Coupon) marketplace.Coupon {
		c.StartDate, c.EndDate, c.IsActive = now.Add(-time.Hour), now.Add(time.Hour), true
		return c
	}
	return []marketplace.Coupon{
		window(marketplace.Coupon{ID: "c1", Code: "SAVE20", DiscountType: "PERCENTAGE", DiscountValue: dec("20")}),
		window(marketplace.Coupon{ID: "c2", Code: "BIG", DiscountType: "FIXED", DiscountValue: dec("15"), MinPurchase: decPtr("100")}),
		window(marketplace.Coupon{ID: "c3", Code: "ODD", DiscountType: "BOGO", DiscountValue: dec("1")}),
	}
}

func cartWithSubtotal(amount string) cart.Snapshot {
	return cart.Snapshot{Cart: cart.Cart{VendorID: "v1", Items: []cart.CartItem{
		{ID: "i1", Product: cart.Product{VendorID: "v1"}, Quantity: 1, UnitPrice: dec(amount)},
	}}}
}

func newCouponService(t *testing.T) (*mockmarket.MockClient, *mockcart.MockService, session.Manager, coupon.Service) {
	ctrl := gomock.NewController(t)
	client := mockmarket.NewMockClient(ctrl)
	cartSvc := mockcart.NewMockService(ctrl)
	sessions := session.NewManager(statestore.NewMemory[session.State](), nil)
	svc := coupon.NewService(coupon.Deps{Client: client, Cart: cartSvc, Sessions: sessions, Logger: zap.NewNop()})
	return client, cartSvc, sessions, svc
}

func TestCouponService_Available(t *testing.T) {
	ctx := context.Background()
	client, cartSvc, _, svc := newCouponService(t)
	client.EXPECT().ListCoupons(gomock.Any(), "tok").Return(remoteCoupons(), nil)
	cartSvc.EXPECT().Detail(gomock.Any(), ident).Return(cartWithSubtotal("80"), nil)

	res, err := svc.Available(ctx, ident)
	require.NoError(t, err)

	require.Len(t, res.Coupons, 2, "unknown discount type skipped")
	assert.True(t, res.Coupons[0].Eligible)
	assert.False(t, res.Coupons[1].Eligible)
	assert.Equal(t, coupon.DiscountFixed, res.Coupons[1].Coupon.DiscountType)
	assert.True(t, dec("80").Equal(res.Subtotal))
	assert.Nil(t, res.Selection.Applied)
}

func TestCouponService_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("by_code_case_insensitive", func(t *testing.T) {
		client, cartSvc, _, svc := newCouponService(t)
		client.EXPECT().ListCoupons(gomock.Any(), "tok").Return(remoteCoupons(), nil)
		cartSvc.EXPECT().Detail(gomock.Any(), ident).Return(cartWithSubtotal("80"), nil)

		sel, err := svc.Apply(ctx, ident, coupon.ApplyRequest{Code: "save20"})
		require.NoError(t, err)
		assert.Equal(t, "c1", sel.Applied.ID)

		stored, _ := svc.Selection(ctx, "u1")
		assert.Equal(t, "c1", stored.Applied.ID)
	})

	t.Run("min_purchase_rejected_keeps_previous", func(t *testing.T) {
		client, cartSvc, _, svc := newCouponService(t)
		client.EXPECT().ListCoupons(gomock.Any(), "tok").Return(remoteCoupons(), nil).Times(2)
		cartSvc.EXPECT().Detail(gomock.Any(), ident).Return(cartWithSubtotal("80"), nil).Times(2)

		_, err := svc.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c1"})
		require.NoError(t, err)

		sel, err := svc.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c2"})
		assert.True(t, coupon.IsRejected(err))
		assert.Equal(t, "c1", sel.Applied.ID)
		assert.NotEmpty(t, sel.Error)

		stored, _ := svc.Selection(ctx, "u1")
		assert.Equal(t, "c1", stored.Applied.ID)
		assert.Equal(t, sel.Error, stored.Error)
	})

	t.Run("unknown_coupon", func(t *testing.T) {
		client, _, _, svc := newCouponService(t)
		client.EXPECT().ListCoupons(gomock.Any(), "tok").Return(remoteCoupons(), nil)

		_, err := svc.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c3"})
		assert.ErrorIs(t, err, coupon.ErrCouponNotAvailable)
	})

	t.Run("empty_request", func(t *testing.T) {
		_, _, _, svc := newCouponService(t)
		_, err := svc.Apply(ctx, ident, coupon.ApplyRequest{})
		assert.ErrorIs(t, err, coupon.ErrCouponRequired)
	})

	t.Run("listing_failure_surfaced", func(t *testing.T) {
		client, _, _, svc := newCouponService(t)
		client.EXPECT().ListCoupons(gomock.Any(), "tok").Return([]marketplace.Coupon{}, marketplace.ErrUnavailable)

		_, err := svc.Apply(ctx, ident, coupon.ApplyRequest{Code: "SAVE20"})
		assert.True(t, marketplace.IsUnavailable(err))
	})
}

func TestCouponService_Clear(t *testing.T) {
	ctx := context.Background()
	client, cartSvc, sessions, svc := newCouponService(t)
	client.EXPECT().ListCoupons(gomock.Any(), "tok").Return(remoteCoupons(), nil).Times(2)
	cartSvc.EXPECT().Detail(gomock.Any(), ident).Return(cartWithSubtotal("80"), nil).Times(2)

	events, cancel := sessions.Subscribe("u1")
	defer cancel()

	_, err := svc.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c1"})
	require.NoError(t, err)
	_, _ = svc.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c2"})

	sel, err := svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, sel.Applied)
	assert.Empty(t, sel.Error)

	assert.Equal(t, session.EventCouponChanged, (<-events).Type)
	assert.Equal(t, session.EventCouponChanged, (<-events).Type)
}
