package producer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("event queue is full")

// Queue hands events to a background loop so request paths never wait on
// the broker. Events that fail to publish are retried on the next tick up
// to MaxAttempts, then dropped with an error log.
type Queue struct {
	next        Publisher
	events      chan Event
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

type QueueOptions struct {
	Size        int
	Interval    time.Duration
	MaxAttempts int
	Logger      *zap.Logger
}

func NewQueue(next Publisher, opts QueueOptions) *Queue {
	if opts.Size <= 0 {
		opts.Size = 256
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}
	return &Queue{
		next:        next,
		events:      make(chan Event, opts.Size),
		interval:    opts.Interval,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger.Named("producer.queue"),
	}
}

// Publish enqueues ev and returns immediately.
func (q *Queue) Publish(_ context.Context, ev Event) error {
	select {
	case q.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

type attempt struct {
	ev    Event
	tries int
}

// Run publishes queued events until ctx is done, then drains what is left
// with a short deadline.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	q.logger.Info("event queue started", zap.Duration("retry_interval", q.interval))

	var retry []attempt
	for {
		select {
		case <-ctx.Done():
			q.drain(retry)
			return
		case ev := <-q.events:
			if a, failed := q.send(ctx, attempt{ev: ev}); failed {
				retry = append(retry, a)
			}
		case <-ticker.C:
			retry = q.resend(ctx, retry)
		}
	}
}

func (q *Queue) send(ctx context.Context, a attempt) (attempt, bool) {
	a.tries++
	err := q.next.Publish(ctx, a.ev)
	if err == nil {
		q.logger.Debug("event published", zap.String("event_id", a.ev.ID.String()), zap.String("event_type", a.ev.Type))
		return a, false
	}
	if a.tries >= q.maxAttempts {
		q.logger.Error("dropping event",
			zap.String("event_id", a.ev.ID.String()),
			zap.String("event_type", a.ev.Type),
			zap.Int("attempts", a.tries),
			zap.Error(err),
		)
		return a, false
	}
	q.logger.Warn("publish failed, will retry", zap.String("event_id", a.ev.ID.String()), zap.Error(err))
	return a, true
}

func (q *Queue) resend(ctx context.Context, pending []attempt) []attempt {
	if len(pending) == 0 {
		return pending
	}
	q.logger.Info("retrying events", zap.Int("count", len(pending)))

	var left []attempt
	for _, a := range pending {
		if next, failed := q.send(ctx, a); failed {
			left = append(left, next)
		}
	}
	return left
}

func (q *Queue) drain(pending []attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case ev := <-q.events:
			pending = append(pending, attempt{ev: ev})
		default:
			for _, a := range pending {
				if err := q.next.Publish(ctx, a.ev); err != nil {
					q.logger.Error("event lost on shutdown", zap.String("event_id", a.ev.ID.String()), zap.Error(err))
				}
			}
			q.logger.Info("event queue stopped")
			return
		}
	}
}
