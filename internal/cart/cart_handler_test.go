package cart_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-storefront/internal/cart"
	"go-storefront/internal/middleware"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/inflight"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// ==================== FAKE SERVICE ====================

type fakeCartService struct {
	DetailFn     func(ctx context.Context, id session.Identity) (cart.Snapshot, error)
	RefreshFn    func(ctx context.Context, id session.Identity) (cart.Snapshot, error)
	AddItemFn    func(ctx context.Context, id session.Identity, req cart.AddItemRequest) (cart.Snapshot, error)
	UpdateQtyFn  func(ctx context.Context, id session.Identity, itemID string, req cart.UpdateQtyRequest) (cart.Snapshot, error)
	IncrementFn  func(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error)
	DecrementFn  func(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error)
	RemoveItemFn func(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error)
	ClearFn      func(ctx context.Context, id session.Identity) (cart.Snapshot, error)
	PendingOps   []string
}

func (f *fakeCartService) Detail(ctx context.Context, id session.Identity) (cart.Snapshot, error) {
	return f.DetailFn(ctx, id)
}
func (f *fakeCartService) Refresh(ctx context.Context, id session.Identity) (cart.Snapshot, error) {
	return f.RefreshFn(ctx, id)
}
func (f *fakeCartService) AddItem(ctx context.Context, id session.Identity, req cart.AddItemRequest) (cart.Snapshot, error) {
	return f.AddItemFn(ctx, id, req)
}
func (f *fakeCartService) UpdateQty(ctx context.Context, id session.Identity, itemID string, req cart.UpdateQtyRequest) (cart.Snapshot, error) {
	return f.UpdateQtyFn(ctx, id, itemID, req)
}
func (f *fakeCartService) Increment(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error) {
	return f.IncrementFn(ctx, id, itemID)
}
func (f *fakeCartService) Decrement(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error) {
	return f.DecrementFn(ctx, id, itemID)
}
func (f *fakeCartService) RemoveItem(ctx context.Context, id session.Identity, itemID string) (cart.Snapshot, error) {
	return f.RemoveItemFn(ctx, id, itemID)
}
func (f *fakeCartService) Clear(ctx context.Context, id session.Identity) (cart.Snapshot, error) {
	return f.ClearFn(ctx, id)
}
func (f *fakeCartService) Invalidate(context.Context, string) error { return nil }
func (f *fakeCartService) Pending(string) []string                  { return f.PendingOps }

// ==================== HELPER FUNCTIONS ====================

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func fakeAuth(c *gin.Context) {
	c.Set(middleware.ContextUserID, "u1")
	c.Set(middleware.ContextAccessToken, "tok")
	c.Next()
}

func newCartRouter(svc cart.Service) *gin.Engine {
	r := setupTestRouter()
	cart.RegisterRoutes(r.Group("/api/v1"), cart.NewHandler(svc), fakeAuth)
	return r
}

func sampleSnapshot() cart.Snapshot {
	return cart.Snapshot{Cart: cart.Cart{
		ID:       "c1",
		VendorID: "v1",
		Items: []cart.CartItem{{
			ID:        "i1",
			Product:   cart.Product{ID: "p1", Name: "Phone", VendorID: "v1", DiscountPercent: decPtr("10")},
			Quantity:  2,
			UnitPrice: dec("100"),
		}},
	}}
}

// ==================== TEST CASES ====================

func TestCartHandler_Detail(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeCartService{
			DetailFn: func(_ context.Context, id session.Identity) (cart.Snapshot, error) {
				assert.Equal(t, "u1", id.UserID)
				assert.Equal(t, "tok", id.AccessToken)
				return sampleSnapshot(), nil
			},
			PendingOps: []string{"update:i1"},
		}

		w := httptest.NewRecorder()
		newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"subtotal":"180.00"`)
		assert.Contains(t, body, `"lineTotal":"180.00"`)
		assert.Contains(t, body, `"itemCount":2`)
		assert.Contains(t, body, `"vendorId":"v1"`)
		assert.Contains(t, body, `"pending":["update:i1"]`)
	})

	t.Run("empty_cart_has_null_vendor", func(t *testing.T) {
		svc := &fakeCartService{
			DetailFn: func(context.Context, session.Identity) (cart.Snapshot, error) {
				return cart.Snapshot{Cart: cart.Cart{ID: "c1"}}, nil
			},
		}

		w := httptest.NewRecorder()
		newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"vendorId":null`)
		assert.Contains(t, w.Body.String(), `"items":[]`)
	})
}

func TestCartHandler_UpdateQty(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := &fakeCartService{
			UpdateQtyFn: func(_ context.Context, _ session.Identity, itemID string, req cart.UpdateQtyRequest) (cart.Snapshot, error) {
				assert.Equal(t, "i1", itemID)
				assert.Equal(t, -1, req.Delta)
				return sampleSnapshot(), nil
			},
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/i1", strings.NewReader(`{"delta":-1}`))
		req.Header.Set("Content-Type", "application/json")
		newCartRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad_json", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/i1", strings.NewReader(`{`))
		newCartRouter(&fakeCartService{}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid_quantity", func(t *testing.T) {
		svc := &fakeCartService{
			DecrementFn: func(context.Context, session.Identity, string) (cart.Snapshot, error) {
				return cart.Snapshot{}, cart.ErrInvalidQty
			},
		}

		w := httptest.NewRecorder()
		newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/i1/decrement", nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_QTY")
	})
}

func TestCartHandler_Increment(t *testing.T) {
	called := false
	svc := &fakeCartService{
		IncrementFn: func(_ context.Context, _ session.Identity, itemID string) (cart.Snapshot, error) {
			called = true
			assert.Equal(t, "i1", itemID)
			return sampleSnapshot(), nil
		},
	}

	w := httptest.NewRecorder()
	newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/i1/increment", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		svc := &fakeCartService{
			RemoveItemFn: func(context.Context, session.Identity, string) (cart.Snapshot, error) {
				return cart.Snapshot{}, inflight.ErrInFlight
			},
		}

		w := httptest.NewRecorder()
		newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/i1", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "OPERATION_PENDING")
	})
}

func TestCartHandler_Clear(t *testing.T) {
	svc := &fakeCartService{
		ClearFn: func(context.Context, session.Identity) (cart.Snapshot, error) {
			return cart.Snapshot{Cart: cart.Cart{ID: "c1"}, Stale: true}, nil
		},
	}

	w := httptest.NewRecorder()
	newCartRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stale":true`)
}
