package app

import (
	"context"

	"go-storefront/internal/config"
	"go-storefront/internal/messaging/kafka/producer"

	"go.uber.org/zap"
)

// startEventQueue runs the event publisher in the background for the
// lifetime of ctx. The writer is closed after the queue has drained.
func startEventQueue(ctx context.Context, cfg config.Config, logger *zap.Logger, in *infra) producer.Publisher {
	writer := newKafkaWriter(cfg)
	queue := producer.NewQueue(producer.NewKafkaPublisher(writer), producer.QueueOptions{Logger: logger})

	qctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		queue.Run(qctx)
		close(done)
	}()

	in.closers = append(in.closers, func() {
		cancel()
		<-done
		if err := writer.Close(); err != nil {
			logger.Warn("close kafka writer", zap.Error(err))
		}
	})

	logger.Info("event publisher started", zap.String("topic", cfg.Kafka.EventsTopic))
	return queue
}
