// Package events carries domain events between the storefront API and its
// background workers over a Redis list or an SQS queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/google/uuid"
)

const OrderPaid = "order.paid"

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	OccurredAt time.Time `json:"occurredAt"`
	// Attempt counts delivery attempts made by the consumer, starting at 0.
	Attempt int `json:"attempt"`
}

func NewOrderPaid(order *models.Order, at time.Time) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       OrderPaid,
		OrderID:    order.ID.Hex(),
		UserID:     order.User,
		OccurredAt: at.UTC(),
	}
}

// Retry returns a copy of e for the next delivery attempt.
func (e *Event) Retry() *Event {
	next := *e
	next.Attempt++
	return &next
}

func Encode(e *Event) ([]byte, error) {
	return json.Marshal(e)
}

func Decode(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" || e.OrderID == "" {
		return nil, fmt.Errorf("decode event: missing type or order id")
	}
	return &e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Handler processes one event. A nil return acknowledges it.
type Handler func(ctx context.Context, e *Event) error

// Consumer delivers events to a handler until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
}
