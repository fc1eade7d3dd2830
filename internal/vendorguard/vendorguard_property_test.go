package vendorguard_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go-storefront/internal/cart"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/marketplace/marketplacetest"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/statestore"
	"go-storefront/internal/vendorguard"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type world struct {
	srv   *marketplacetest.Server
	cart  cart.Service
	guard vendorguard.Service
}

func newWorld(t *testing.T) world {
	t.Helper()
	srv := marketplacetest.NewServer()
	t.Cleanup(srv.Close)

	for _, p := range []marketplace.Product{
		{ID: "a1", VendorID: "vA", Price: decimal.NewFromInt(10)},
		{ID: "a2", VendorID: "vA", Price: decimal.NewFromInt(15)},
		{ID: "b1", VendorID: "vB", Price: decimal.NewFromInt(20)},
		{ID: "b2", VendorID: "vB", Price: decimal.NewFromInt(25)},
		{ID: "c1", VendorID: "vC", Price: decimal.NewFromInt(30)},
	} {
		srv.AddProduct(p, 1000)
	}

	sessions := session.NewManager(statestore.NewMemory[session.State](), nil)
	cartSvc := cart.NewService(cart.Deps{
		Client:   srv.Client(),
		Cache:    cart.NewMemoryCache(time.Minute),
		Sessions: sessions,
		Logger:   zap.NewNop(),
	})
	guard := vendorguard.NewService(vendorguard.Deps{Cart: cartSvc, Sessions: sessions, Logger: zap.NewNop()})
	return world{srv: srv, cart: cartSvc, guard: guard}
}

func addReq(productID, vendorID string) cart.AddItemRequest {
	return cart.AddItemRequest{ProductID: productID, VendorID: vendorID, Quantity: 1}
}

func TestGuard_CancelIsNoOp(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	_, err := w.guard.RequestAdd(ctx, ident, addReq("a1", "vA"))
	require.NoError(t, err)
	before := w.srv.Cart(ident.AccessToken)
	addsBefore := w.srv.Calls(marketplacetest.OpAddItem)

	d, err := w.guard.RequestAdd(ctx, ident, addReq("b1", "vB"))
	require.NoError(t, err)
	require.Equal(t, vendorguard.StateAwaitingConfirmation, d.State)

	_, err = w.guard.Cancel(ctx, ident)
	require.NoError(t, err)

	assert.Equal(t, before, w.srv.Cart(ident.AccessToken))
	assert.Equal(t, addsBefore, w.srv.Calls(marketplacetest.OpAddItem))
}

func TestGuard_ConfirmReplacesVendor(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	_, err := w.guard.RequestAdd(ctx, ident, addReq("a1", "vA"))
	require.NoError(t, err)
	_, err = w.guard.RequestAdd(ctx, ident, addReq("a2", "vA"))
	require.NoError(t, err)
	_, err = w.guard.RequestAdd(ctx, ident, addReq("b1", "vB"))
	require.NoError(t, err)

	d, err := w.guard.Confirm(ctx, ident)
	require.NoError(t, err)
	require.NotNil(t, d.Cart)
	assert.Equal(t, "vB", d.Cart.Cart.VendorID)
	require.Len(t, d.Cart.Cart.Items, 1)
	assert.Equal(t, "b1", d.Cart.Cart.Items[0].Product.ID)
}

func TestGuard_SingleVendorInvariant(t *testing.T) {
	ctx := context.Background()
	products := []cart.AddItemRequest{
		addReq("a1", "vA"), addReq("a2", "vA"),
		addReq("b1", "vB"), addReq("b2", "vB"),
		addReq("c1", "vC"),
	}

	for seed := int64(1); seed <= 20; seed++ {
		w := newWorld(t)
		rnd := rand.New(rand.NewSource(seed))

		for step := 0; step < 15; step++ {
			d, err := w.guard.RequestAdd(ctx, ident, products[rnd.Intn(len(products))])
			require.NoError(t, err)

			if d.State == vendorguard.StateAwaitingConfirmation {
				if rnd.Intn(2) == 0 {
					_, err = w.guard.Confirm(ctx, ident)
				} else {
					_, err = w.guard.Cancel(ctx, ident)
				}
				require.NoError(t, err)
			}

			snap, err := w.cart.Detail(ctx, ident)
			require.NoError(t, err)
			if !snap.Cart.IsEmpty() {
				assert.True(t, snap.Cart.SingleVendor(), "seed %d step %d", seed, step)
			}
		}
	}
}
