package orders

import (
	"context"
	"strings"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
)

func validateConfirmation(c models.PaymentResult) error {
	var missing []string
	if strings.TrimSpace(c.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(c.Status) == "" {
		missing = append(missing, "status")
	}
	if strings.TrimSpace(c.UpdateTime) == "" {
		missing = append(missing, "update_time")
	}
	if strings.TrimSpace(c.EmailAddress) == "" {
		missing = append(missing, "email_address")
	}
	if len(missing) > 0 {
		return apperr.Validation("Payment confirmation is missing " + strings.Join(missing, ", "))
	}
	return nil
}

// ConfirmPayment marks the order paid once the processor confirms the
// payment. Confirming an already paid order returns it unchanged. Only the
// call that flips the order publishes order.paid.
func (s *Service) ConfirmPayment(ctx context.Context, id string, confirmation models.PaymentResult) (*models.Order, error) {
	if err := validateConfirmation(confirmation); err != nil {
		return nil, err
	}

	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		s.logger.Info("Order already paid", zap.String("order_id", id))
		return order, nil
	}

	if err := s.verifier.Verify(ctx, order, confirmation); err != nil {
		return nil, err
	}

	updated, applied, err := s.store.MarkPaid(ctx, id, confirmation, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !applied {
		s.logger.Info("Order paid concurrently", zap.String("order_id", id))
		return updated, nil
	}

	s.logger.Info("Order paid",
		zap.String("order_id", id),
		zap.String("payment_id", confirmation.ID),
		zap.Float64("total", updated.TotalPrice))
	s.publishPaid(ctx, updated)
	return updated, nil
}

// publishPaid publishes on a context detached from the request. Failures
// are logged, never returned.
func (s *Service) publishPaid(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	at := s.now()
	if order.PaidAt != nil {
		at = *order.PaidAt
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	e := events.NewOrderPaid(order, at)
	if err := s.publisher.Publish(pctx, e); err != nil {
		s.logger.Error("Failed to publish event",
			zap.String("type", e.Type),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
	}
}

// MarkDelivered flips the order to delivered. Delivering a delivered order
// returns it unchanged.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	requirePaid := s.policy.RequirePaymentBeforeDelivery
	updated, applied, err := s.store.MarkDelivered(ctx, id, s.now().UTC(), requirePaid)
	if err != nil {
		return nil, err
	}
	if !applied {
		if !updated.IsDelivered && requirePaid && !updated.IsPaid {
			return nil, apperr.New(apperr.ErrNotPaid, "Order Not Paid")
		}
		return updated, nil
	}

	s.logger.Info("Order delivered", zap.String("order_id", id))
	return updated, nil
}
