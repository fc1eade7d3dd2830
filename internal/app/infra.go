package app

import (
	"context"

	"go-storefront/internal/cart"
	"go-storefront/internal/config"
	"go-storefront/internal/coupon"
	"go-storefront/internal/messaging/kafka/producer"
	"go-storefront/internal/session"
	"go-storefront/internal/shared/idempotency"
	"go-storefront/internal/shared/statestore"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// infra is the set of stores and sinks shared by the API and consumer.
// Without redis everything lives in process memory; without brokers
// events are discarded.
type infra struct {
	redis       *redis.Client
	cartCache   cart.Cache
	states      statestore.Store[session.State]
	selections  statestore.Store[coupon.Selection]
	idempotency idempotency.Store
	publisher   producer.Publisher

	closers []func()
}

func newInfra(ctx context.Context, cfg config.Config, logger *zap.Logger, withPublisher bool) (*infra, error) {
	in := &infra{publisher: producer.Noop{}}

	if cfg.RedisEnabled() {
		rdb, err := connectRedisWithRetry(cfg, logger)
		if err != nil {
			return nil, err
		}
		in.redis = rdb
		in.cartCache = cart.NewRedisCache(rdb, cfg.Redis.CartTTL)
		in.states = statestore.NewRedis[session.State](rdb, "session:", cfg.Redis.SessionTTL)
		in.selections = statestore.NewRedis[coupon.Selection](rdb, "coupon:", cfg.Redis.SessionTTL)
		in.idempotency = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
		in.closers = append(in.closers, func() { _ = rdb.Close() })
	} else {
		logger.Warn("redis not configured, using in-memory stores")
		in.cartCache = cart.NewMemoryCache(cfg.Redis.CartTTL)
		in.states = statestore.NewMemory[session.State]()
		in.selections = statestore.NewMemory[coupon.Selection]()
		in.idempotency = idempotency.NewMemoryStore(cfg.Redis.IdempotencyTTL)
	}

	if withPublisher && cfg.KafkaEnabled() {
		if err := dialKafkaWithRetry(cfg.Kafka.Brokers, logger); err != nil {
			in.close()
			return nil, err
		}
		in.publisher = startEventQueue(ctx, cfg, logger, in)
	}

	return in, nil
}

func (in *infra) close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
}
