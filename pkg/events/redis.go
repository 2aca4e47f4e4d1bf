package events

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// List is a blocking FIFO list, satisfied by repository.RedisRepository.
type List interface {
	Push(ctx context.Context, key string, payload []byte) error
	Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
}

// RedisQueue publishes and consumes events through a Redis list. Delivery
// is at most once: a handler failure is logged and the event is not
// requeued.
type RedisQueue struct {
	list        List
	key         string
	pollTimeout time.Duration
	logger      *zap.Logger
}

func NewRedisQueue(list List, key string, pollTimeout time.Duration, logger *zap.Logger) *RedisQueue {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisQueue{list: list, key: key, pollTimeout: pollTimeout, logger: logger}
}

func (q *RedisQueue) Publish(ctx context.Context, e *Event) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	return q.list.Push(ctx, q.key, payload)
}

func (q *RedisQueue) Consume(ctx context.Context, h Handler) error {
	q.logger.Info("Consuming events", zap.String("key", q.key))
	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := q.list.Pop(ctx, q.key, q.pollTimeout)
		if err != nil {
			if repository.IsCacheMiss(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("Error popping event", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		e, err := Decode(payload)
		if err != nil {
			q.logger.Warn("Dropping malformed event", zap.Error(err))
			continue
		}
		if err := h(ctx, e); err != nil {
			q.logger.Error("Event handler failed",
				zap.String("event_id", e.ID),
				zap.String("order_id", e.OrderID),
				zap.Error(err))
		}
	}
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
