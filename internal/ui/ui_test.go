package ui_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-storefront/internal/coupon"
	"go-storefront/internal/middleware"
	mockcart "go-storefront/internal/mock/cart"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/statestore"
	"go-storefront/internal/ui"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type fixture struct {
	sessions session.Manager
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	cartSvc := mockcart.NewMockService(ctrl)
	cartSvc.EXPECT().Pending("u1").Return([]string{"update:i1"}).AnyTimes()

	sessions := session.NewManager(statestore.NewMemory[session.State](), nil)
	coupons := coupon.NewService(coupon.Deps{Sessions: sessions, Logger: zap.NewNop()})
	svc := ui.NewService(ui.Deps{Sessions: sessions, Cart: cartSvc, Coupons: coupons})

	r := gin.New()
	auth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "u1")
		c.Set(middleware.ContextAccessToken, "tok")
	}
	ui.RegisterRoutes(r.Group("/api/v1"), ui.NewHandler(svc, zap.NewNop()), auth)
	return &fixture{sessions: sessions, router: r}
}

func TestUIHandler_State(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.SetPending(context.Background(), "u1", session.PendingProduct{ProductID: "p9", VendorID: "v2", Quantity: 1})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ui/state", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"vendorAlert":true`)
	assert.Contains(t, body, `"productId":"p9"`)
	assert.Contains(t, body, `"pending":["update:i1"]`)
	assert.Contains(t, body, `"applied":null`)
}

func TestUIHandler_CartPanel(t *testing.T) {
	t.Run("open_then_close", func(t *testing.T) {
		f := newFixture(t)
		for _, tc := range []struct {
			body string
			want string
		}{
			{`{"open":true}`, `"cartOpen":true`},
			{`{"open":false}`, `"cartOpen":false`},
		} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/api/v1/ui/cart-panel", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			f.router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		}
	})

	t.Run("open_is_required", func(t *testing.T) {
		f := newFixture(t)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/ui/cart-panel", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUIHandler_Events(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/ui/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	next := func(prefix string) string {
		for {
			select {
			case l, ok := <-lines:
				if !ok {
					t.Fatalf("stream closed waiting for %q", prefix)
				}
				if strings.HasPrefix(l, prefix) {
					return l
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	assert.Equal(t, "event:STATE", next("event:"))
	assert.Contains(t, next("data:"), `"cartOpen":false`)

	// the subscription is registered before the first event is written
	_, err = f.sessions.SetCartOpen(context.Background(), "u1", true)
	require.NoError(t, err)

	assert.Equal(t, "event:CART_OPENED", next("event:"))
	assert.Contains(t, next("data:"), `"type":"CART_OPENED"`)
}
