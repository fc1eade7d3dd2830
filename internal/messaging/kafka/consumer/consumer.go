// Package consumer reacts to order events published by the marketplace:
// once an order is placed or paid the user's cached cart and applied
// coupon are dropped so the next read reflects the server.
package consumer

import (
	"context"
	"errors"
	"time"

	"go-storefront/internal/pkg/metrics"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventDeleteCart = "DELETE_CART"
	EventOrderPaid  = "ORDER_PAID"
)

// Reader is the part of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type HandlerFunc func(ctx context.Context, payload []byte) error

type Consumer struct {
	reader   Reader
	handlers map[string]HandlerFunc
	logger   *zap.Logger
	backoff  time.Duration
}

func New(reader Reader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.L()
	}
	return &Consumer{
		reader:   reader,
		handlers: make(map[string]HandlerFunc),
		logger:   logger.Named("consumer"),
		backoff:  time.Second,
	}
}

func (c *Consumer) Handle(eventType string, fn HandlerFunc) {
	c.handlers[eventType] = fn
}

// Run fetches until ctx is done. A message whose handler fails is not
// committed, so it is delivered again after a rebalance or restart.
// Unknown event types are committed and skipped.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("started consuming messages")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("stopped consuming messages")
				return
			}
			c.logger.Warn("fetch message failed", zap.Error(err))
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	eventType := getHeader(msg.Headers, "event_type")
	fn, ok := c.handlers[eventType]
	if !ok {
		metrics.ConsumedEvents.WithLabelValues(labelFor(eventType), "skipped").Inc()
		c.commit(ctx, msg)
		return
	}

	if err := fn(ctx, msg.Value); err != nil {
		metrics.ConsumedEvents.WithLabelValues(eventType, metrics.ResultError).Inc()
		c.logger.Error("handle event failed",
			zap.String("event_type", eventType),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}

	metrics.ConsumedEvents.WithLabelValues(eventType, metrics.ResultOK).Inc()
	c.commit(ctx, msg)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Warn("commit message failed", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}

func labelFor(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	return "other"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
