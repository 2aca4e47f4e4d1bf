// Package notify emails customers when their order is paid. Events arrive
// from the event queue and are handled by a NotificationActor, which retries
// failed sends with exponential backoff.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

type OrderLoader interface {
	Get(ctx context.Context, id string) (*models.Order, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Deduper claims a key once; later claims of the same key return false.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NotificationActor sends the receipt for order.paid events.
type NotificationActor struct {
	orders  OrderLoader
	users   UserLoader
	mailer  Mailer
	deduper Deduper
	from    string
	cfg     config.NotifyConfig
	logger  *zap.Logger
	// after schedules fn after d. Replaced in tests.
	after func(d time.Duration, fn func())
}

func NewNotificationActor(orders OrderLoader, users UserLoader, mailer Mailer, deduper Deduper, from string, cfg config.NotifyConfig, logger *zap.Logger) *NotificationActor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &NotificationActor{
		orders:  orders,
		users:   users,
		mailer:  mailer,
		deduper: deduper,
		from:    from,
		cfg:     cfg,
		logger:  logger,
		after:   func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

func (a *NotificationActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *events.Event:
		a.handle(ctx, msg)

	case *actor.Started:
		a.logger.Info("Notification actor started")

	case *actor.Stopping:
		a.logger.Info("Notification actor stopping")

	case *actor.Stopped:
		a.logger.Info("Notification actor stopped")
	}
}

func (a *NotificationActor) handle(ctx actor.Context, e *events.Event) {
	if e.Type != events.OrderPaid {
		a.logger.Debug("Ignoring event", zap.String("type", e.Type))
		return
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), a.cfg.SendTimeout)
	defer cancel()

	if e.Attempt == 0 && a.deduper != nil {
		first, err := a.deduper.Claim(sendCtx, dedupeKey(e), a.cfg.DedupeTTL)
		if err != nil {
			a.logger.Warn("Dedupe claim failed, sending anyway", zap.String("order_id", e.OrderID), zap.Error(err))
		} else if !first {
			a.logger.Info("Receipt already sent", zap.String("order_id", e.OrderID))
			return
		}
	}

	err := a.sendReceipt(sendCtx, e)
	if err == nil {
		a.logger.Info("Receipt sent", zap.String("order_id", e.OrderID), zap.Int("attempt", e.Attempt+1))
		return
	}

	if e.Attempt+1 >= a.cfg.MaxAttempts {
		a.logger.Error("Giving up on receipt",
			zap.String("order_id", e.OrderID),
			zap.Int("attempts", e.Attempt+1),
			zap.Error(err))
		return
	}

	delay := Backoff(a.cfg.BaseDelay, a.cfg.MaxDelay, e.Attempt)
	a.logger.Warn("Receipt failed, retrying",
		zap.String("order_id", e.OrderID),
		zap.Int("attempt", e.Attempt+1),
		zap.Duration("delay", delay),
		zap.Error(err))

	self := ctx.Self()
	root := ctx.ActorSystem().Root
	next := e.Retry()
	a.after(delay, func() { root.Send(self, next) })
}

func (a *NotificationActor) sendReceipt(ctx context.Context, e *events.Event) error {
	order, err := a.orders.Get(ctx, e.OrderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	user, err := a.users.GetByID(ctx, order.User)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	msg, err := Receipt(a.from, order, user)
	if err != nil {
		return err
	}
	return a.mailer.Send(ctx, msg)
}

func dedupeKey(e *events.Event) string {
	return fmt.Sprintf("notify:%s:%s", e.Type, e.OrderID)
}

// Backoff returns base doubled attempt times, capped at limit.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if limit <= 0 {
		limit = 5 * time.Minute
	}
	d := base
	for i := 0; i < attempt; i++ {
		if d > limit/2 {
			return limit
		}
		d <<= 1
	}
	if d > limit {
		return limit
	}
	return d
}

// Relay forwards every consumed event to pid until ctx is cancelled. The
// actor owns retries, so the consumer acknowledges on hand-off.
func Relay(ctx context.Context, consumer events.Consumer, root *actor.RootContext, pid *actor.PID) error {
	return consumer.Consume(ctx, func(_ context.Context, e *events.Event) error {
		root.Send(pid, e)
		return nil
	})
}
