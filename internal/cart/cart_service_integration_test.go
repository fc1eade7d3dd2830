package cart_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"go-storefront/internal/cart"
	"go-storefront/internal/marketplace"
	"go-storefront/internal/marketplace/marketplacetest"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/statestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIntegration(t *testing.T, cache cart.Cache) (*marketplacetest.Server, cart.Service) {
	t.Helper()
	srv := marketplacetest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddProduct(marketplace.Product{ID: "p1", Name: "Phone", Price: dec("100"), VendorID: "v1"}, 10)
	srv.AddProduct(marketplace.Product{ID: "p2", Name: "Case", Price: dec("20"), VendorID: "v1"}, 10)

	svc := cart.NewService(cart.Deps{
		Client:   srv.Client(),
		Cache:    cache,
		Sessions: session.NewManager(statestore.NewMemory[session.State](), nil),
		Logger:   zap.NewNop(),
	})
	return srv, svc
}

func TestCart_ConcurrentMutationsConverge(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name          string
		updateLatency time.Duration
		removeLatency time.Duration
	}{
		{"update_answers_last", 60 * time.Millisecond, 0},
		{"remove_answers_last", 0, 60 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, svc := newIntegration(t, cart.NewMemoryCache(time.Minute))

			_, err := svc.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
			require.NoError(t, err)
			snap, err := svc.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p2", VendorID: "v1", Quantity: 1})
			require.NoError(t, err)
			require.Len(t, snap.Cart.Items, 2)

			var phoneID, caseID string
			for _, it := range snap.Cart.Items {
				if it.Product.ID == "p1" {
					phoneID = it.ID
				} else {
					caseID = it.ID
				}
			}

			srv.SetLatency(marketplacetest.OpUpdateItem, tc.updateLatency)
			srv.SetLatency(marketplacetest.OpRemoveItem, tc.removeLatency)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := svc.Increment(ctx, ident, phoneID)
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := svc.RemoveItem(ctx, ident, caseID)
				assert.NoError(t, err)
			}()
			wg.Wait()

			final, err := svc.Detail(ctx, ident)
			require.NoError(t, err)
			require.Len(t, final.Cart.Items, 1)
			assert.Equal(t, phoneID, final.Cart.Items[0].ID)
			assert.Equal(t, 2, final.Cart.Items[0].Quantity)
			assert.True(t, final.Cart.SingleVendor())
		})
	}
}

func TestCart_RedisCacheAgainstFakeMarketplace(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t, time.Minute)
	srv, svc := newIntegration(t, cache)

	_, err := svc.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 2})
	require.NoError(t, err)

	calls := srv.Calls(marketplacetest.OpGetCart)
	snap, err := svc.Detail(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, calls, srv.Calls(marketplacetest.OpGetCart), "served from cache")
	assert.True(t, dec("200").Equal(snap.Cart.Subtotal()))

	_, err = svc.Clear(ctx, ident)
	require.NoError(t, err)
	snap, err = svc.Detail(ctx, ident)
	require.NoError(t, err)
	assert.True(t, snap.Cart.IsEmpty())
}

func TestCart_AddItemReloadFailure(t *testing.T) {
	ctx := context.Background()
	srv, svc := newIntegration(t, cart.NewMemoryCache(time.Minute))
	srv.FailNext(marketplacetest.OpGetCart, http.StatusServiceUnavailable, "")

	_, err := svc.AddItem(ctx, ident, cart.AddItemRequest{ProductID: "p1", VendorID: "v1", Quantity: 1})
	assert.ErrorIs(t, err, cart.ErrCartReloadFailed)
	assert.Len(t, srv.Cart(ident.AccessToken).Items, 1)

	snap, err := svc.Detail(ctx, ident)
	require.NoError(t, err)
	assert.Len(t, snap.Cart.Items, 1)
}
