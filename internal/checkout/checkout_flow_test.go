package checkout_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-storefront/internal/cart"
	"go-storefront/internal/checkout"
	"go-storefront/internal/config"
	"go-storefront/internal/coupon"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/marketplace/marketplacetest"
	"go-storefront/internal/middleware"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/idempotency"
	"go-storefront/internal/shared/inflight"
	"go-storefront/internal/shared/statestore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flow struct {
	srv     *marketplacetest.Server
	cart    cart.Service
	coupons coupon.Service
	router  *gin.Engine
}

func newFlow(t *testing.T) *flow {
	t.Helper()
	return newFlowWithLimits(t, 100, 100)
}

func newFlowWithLimits(t *testing.T, rps float64, burst int) *flow {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := marketplacetest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddProduct(marketplace.Product{ID: "p1", Name: "Phone", Price: dec("100"), Discount: decPtr("10"), VendorID: "v1"}, 10)
	now := time.Now()
	srv.AddCoupon(marketplace.Coupon{
		ID: "c1", Code: "SAVE20", DiscountType: "PERCENTAGE", DiscountValue: dec("20"),
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), IsActive: true,
	})

	client := srv.Client()
	tracker := inflight.NewTracker()
	sessions := session.NewManager(statestore.NewMemory[session.State](), nil)
	cartSvc := cart.NewService(cart.Deps{Client: client, Sessions: sessions, Tracker: tracker, Logger: zap.NewNop()})
	couponSvc := coupon.NewService(coupon.Deps{Client: client, Cart: cartSvc, Sessions: sessions, Logger: zap.NewNop()})
	svc := checkout.NewService(checkout.Deps{Client: client, Cart: cartSvc, Coupons: couponSvc, Tracker: tracker, Logger: zap.NewNop()})

	r := gin.New()
	auth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, ident.UserID)
		c.Set(middleware.ContextAccessToken, ident.AccessToken)
	}
	checkout.RegisterRoutes(r.Group("/api/v1"), checkout.NewHandler(svc, cartSvc), auth, checkout.RouteOptions{
		Idempotency: idempotency.NewMemoryStore(time.Minute),
		RPS:         rps,
		Burst:       burst,
	})

	return &flow{srv: srv, cart: cartSvc, coupons: couponSvc, router: r}
}

func (f *flow) post(path, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.IdempotencyHeader, key)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func TestCheckoutFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("summary_reflects_applied_coupon", func(t *testing.T) {
		f := newFlow(t)
		_, err := f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 2})
		require.NoError(t, err)
		_, err = f.coupons.Apply(ctx, ident, coupon.ApplyRequest{Code: "SAVE20"})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/checkout/summary", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"subtotal":"180.00"`)
		assert.Contains(t, body, `"discount":"36.00"`)
		assert.Contains(t, body, `"total":"144.00"`)
	})

	t.Run("same_key_replays_payment_url", func(t *testing.T) {
		f := newFlow(t)
		_, err := f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
		require.NoError(t, err)
		_, err = f.coupons.Apply(ctx, ident, coupon.ApplyRequest{CouponID: "c1"})
		require.NoError(t, err)

		first := f.post("/api/v1/checkout", "abc")
		require.Equal(t, http.StatusCreated, first.Code)
		assert.Contains(t, first.Body.String(), marketplacetest.PaymentBaseURL)
		assert.Equal(t, "abc", f.srv.LastIdempotencyKey())
		assert.Equal(t, "SAVE20", f.srv.LastCouponCode())

		second := f.post("/api/v1/checkout", "abc")
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, f.srv.Calls(marketplacetest.OpCheckout))
	})

	t.Run("redirect_sends_see_other", func(t *testing.T) {
		f := newFlow(t)
		_, err := f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
		require.NoError(t, err)

		w := f.post("/api/v1/checkout?redirect=true", "")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), marketplacetest.PaymentBaseURL))
	})

	t.Run("failure_keeps_cart_and_allows_retry", func(t *testing.T) {
		f := newFlow(t)
		_, err := f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
		require.NoError(t, err)
		f.srv.FailNext(marketplacetest.OpCheckout, http.StatusServiceUnavailable, "")

		failed := f.post("/api/v1/checkout", "retry-me")
		assert.Equal(t, http.StatusBadGateway, failed.Code)
		assert.Empty(t, failed.Header().Get("Location"))
		assert.Len(t, f.srv.Cart(ident.AccessToken).Items, 1)

		ok := f.post("/api/v1/checkout", "retry-me")
		assert.Equal(t, http.StatusCreated, ok.Code)
	})

	t.Run("empty_cart_rejected_locally", func(t *testing.T) {
		f := newFlow(t)

		w := f.post("/api/v1/checkout", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, 0, f.srv.Calls(marketplacetest.OpCheckout))
	})

	t.Run("shipped_limits_allow_retry_and_replay", func(t *testing.T) {
		cfg, err := config.Load("../../configs", "")
		require.NoError(t, err)
		f := newFlowWithLimits(t, cfg.RateLimit.CheckoutRPS, cfg.RateLimit.CheckoutBurst)
		_, err = f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
		require.NoError(t, err)
		f.srv.FailNext(marketplacetest.OpCheckout, http.StatusServiceUnavailable, "")

		failed := f.post("/api/v1/checkout", "k1")
		assert.Equal(t, http.StatusBadGateway, failed.Code)

		first := f.post("/api/v1/checkout", "k1")
		require.Equal(t, http.StatusCreated, first.Code)

		replay := f.post("/api/v1/checkout", "k1")
		assert.Equal(t, http.StatusCreated, replay.Code)
		assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, first.Body.String(), replay.Body.String())
	})

	t.Run("replay_not_counted_by_limiter", func(t *testing.T) {
		f := newFlowWithLimits(t, 0.001, 1)
		_, err := f.cart.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
		require.NoError(t, err)

		first := f.post("/api/v1/checkout", "once")
		require.Equal(t, http.StatusCreated, first.Code)

		replay := f.post("/api/v1/checkout", "once")
		assert.Equal(t, http.StatusCreated, replay.Code)
		assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))

		fresh := f.post("/api/v1/checkout", "other")
		assert.Equal(t, http.StatusTooManyRequests, fresh.Code)
	})
}
