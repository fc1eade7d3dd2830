package app

import (
	"context"
	"fmt"
	"time"

	"go-storefront/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxRetries = 5

var retryDelay = 5 * time.Second

func connectRedisWithRetry(cfg config.Config, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var err error
	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
			return rdb, nil
		}

		logger.Warn("redis connect retry", zap.Int("attempt", i), zap.Int("max", maxRetries), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}

	_ = rdb.Close()
	return nil, fmt.Errorf("connect redis: %w", err)
}

// dialKafkaWithRetry only checks that a broker answers; writers and
// readers open their own connections.
func dialKafkaWithRetry(brokers []string, logger *zap.Logger) error {
	var err error
	for i := 1; i <= maxRetries; i++ {
		for _, broker := range brokers {
			var conn *kafka.Conn
			conn, err = kafka.Dial("tcp", broker)
			if err == nil {
				_ = conn.Close()
				logger.Info("connected to kafka", zap.String("broker", broker))
				return nil
			}
		}

		logger.Warn("kafka connect retry", zap.Int("attempt", i), zap.Int("max", maxRetries), zap.Error(err))
		if i < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("connect kafka: %w", err)
}

func newKafkaWriter(cfg config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.EventsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func newKafkaReader(cfg config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.OrderTopic,
		GroupID: cfg.Kafka.GroupID,
	})
}
