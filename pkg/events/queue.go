package events

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
)

// Queue is both ends of an event transport.
type Queue interface {
	Publisher
	Consumer
}

// Open returns the transport selected by cfg.Driver. list backs the redis
// driver and is ignored otherwise.
func Open(ctx context.Context, cfg config.EventsConfig, list List, logger *zap.Logger) (Queue, error) {
	switch cfg.Driver {
	case "", "redis":
		return NewRedisQueue(list, cfg.RedisKey, cfg.PollTimeout, logger), nil
	case "sqs":
		q, err := NewSQSQueue(ctx, cfg.AWSRegion, cfg.SQSQueueURL, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}
