package idempotency_test

import (
	"context"
	"testing"
	"time"

	"go-storefront/internal/shared/idempotency"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	stores := map[string]idempotency.Store{
		"memory": idempotency.NewMemoryStore(time.Hour),
		"redis":  idempotency.NewRedisStore(rdb, time.Hour),
	}

	ctx := context.Background()
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ok, err := s.TryLock(ctx, "checkout", "k1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.TryLock(ctx, "checkout", "k1")
			require.NoError(t, err)
			assert.False(t, ok, "second lock on the same key must fail")

			ok, _ = s.TryLock(ctx, "checkout", "k2")
			assert.True(t, ok)

			_, found, err := s.Recall(ctx, "checkout", "k1")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, s.Remember(ctx, "checkout", "k1", []byte(`{"paymentUrl":"x"}`)))
			val, found, err := s.Recall(ctx, "checkout", "k1")
			require.NoError(t, err)
			assert.True(t, found)
			assert.JSONEq(t, `{"paymentUrl":"x"}`, string(val))

			require.NoError(t, s.Unlock(ctx, "checkout", "k1"))
			ok, _ = s.TryLock(ctx, "checkout", "k1")
			assert.True(t, ok)
		})
	}
}
