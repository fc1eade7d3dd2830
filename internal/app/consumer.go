package app

import (
	"context"

	"go-storefront/internal/config"
	"go-storefront/internal/messaging/kafka/consumer"

	"go.uber.org/zap"
)

// RunConsumer resets carts when the marketplace reports a placed or paid
// order. It shares the API's redis stores, so it only has an effect on a
// redis-backed deployment.
func RunConsumer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting cart consumer", zap.String("topic", cfg.Kafka.OrderTopic))

	if !cfg.RedisEnabled() {
		logger.Warn("redis not configured, cart resets will not reach the api process")
	}

	in, err := newInfra(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer in.close()

	if err := dialKafkaWithRetry(cfg.Kafka.Brokers, logger); err != nil {
		return err
	}

	reader := newKafkaReader(cfg)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("close kafka reader", zap.Error(err))
		}
	}()
	logger.Info("kafka reader initialized", zap.String("group_id", cfg.Kafka.GroupID))

	// the consumer never talks to the marketplace
	svc := newServices(nil, in, logger)

	c := consumer.New(reader, logger)
	reset := consumer.ResetCart(svc.cart, svc.coupons, logger)
	c.Handle(consumer.EventDeleteCart, reset)
	c.Handle(consumer.EventOrderPaid, reset)

	c.Run(ctx)

	logger.Info("cart consumer stopped")
	return nil
}
