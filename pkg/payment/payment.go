// Package payment checks a client-reported payment against the processor's
// own record before an order is marked paid.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const StatusCompleted = "COMPLETED"

// Verifier confirms that the processor captured the order total.
type Verifier interface {
	Verify(ctx context.Context, order *models.Order, confirmation models.PaymentResult) error
}

// Noop accepts every confirmation. It is used when verification is turned
// off for local development.
type Noop struct{}

func (Noop) Verify(context.Context, *models.Order, models.PaymentResult) error { return nil }

type orderFetcher interface {
	GetAccessToken(ctx context.Context) (*paypal.TokenResponse, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

// PayPalVerifier looks up the PayPal order named by the confirmation.
type PayPalVerifier struct {
	client   orderFetcher
	currency string
	logger   *zap.Logger

	mu     sync.Mutex
	authed bool
}

func NewPayPalVerifier(cfg *config.PayPalConfig, logger *zap.Logger) (*PayPalVerifier, error) {
	base := paypal.APIBaseSandBox
	if cfg.Live {
		base = paypal.APIBaseLive
	}
	client, err := paypal.NewClient(cfg.ClientID, cfg.Secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create PayPal client: %w", err)
	}
	return newPayPalVerifier(client, cfg.Currency, logger), nil
}

func newPayPalVerifier(client orderFetcher, currency string, logger *zap.Logger) *PayPalVerifier {
	if currency == "" {
		currency = "USD"
	}
	return &PayPalVerifier{client: client, currency: currency, logger: logger}
}

// New selects the verifier configured by cfg.
func New(cfg *config.PayPalConfig, logger *zap.Logger) (Verifier, error) {
	if !cfg.Verify {
		logger.Warn("PayPal verification disabled, accepting client confirmations")
		return Noop{}, nil
	}
	return NewPayPalVerifier(cfg, logger)
}

func (v *PayPalVerifier) authenticate(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.authed {
		return nil
	}
	if _, err := v.client.GetAccessToken(ctx); err != nil {
		return err
	}
	v.authed = true
	return nil
}

func (v *PayPalVerifier) Verify(ctx context.Context, order *models.Order, confirmation models.PaymentResult) error {
	if err := v.authenticate(ctx); err != nil {
		return apperr.Wrap(apperr.ErrUpstream, "Payment processor unavailable", err)
	}

	record, err := v.client.GetOrder(ctx, confirmation.ID)
	if err != nil {
		var perr *paypal.ErrorResponse
		if errors.As(err, &perr) && perr.Response != nil && perr.Response.StatusCode < http.StatusInternalServerError {
			return apperr.Wrap(apperr.ErrPaymentMismatch, "Payment not found at processor", err)
		}
		return apperr.Wrap(apperr.ErrUpstream, "Payment processor unavailable", err)
	}

	if err := matchCapture(record, order, v.currency); err != nil {
		v.logger.Warn("Payment does not match order",
			zap.String("order_id", order.ID.Hex()),
			zap.String("payment_id", confirmation.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// matchCapture requires a completed processor order whose amount, summed
// over purchase units, equals the order total to the cent.
func matchCapture(record *paypal.Order, order *models.Order, currency string) error {
	if record == nil {
		return apperr.New(apperr.ErrPaymentMismatch, "Payment not found at processor")
	}
	if record.Status != StatusCompleted {
		return apperr.New(apperr.ErrPaymentMismatch, fmt.Sprintf("Payment status is %s", record.Status))
	}

	paid := decimal.Zero
	for _, unit := range record.PurchaseUnits {
		if unit.Amount == nil {
			continue
		}
		if !strings.EqualFold(unit.Amount.Currency, currency) {
			return apperr.New(apperr.ErrPaymentMismatch, fmt.Sprintf("Payment currency %s does not match %s", unit.Amount.Currency, currency))
		}
		value, err := decimal.NewFromString(unit.Amount.Value)
		if err != nil {
			return apperr.Wrap(apperr.ErrPaymentMismatch, "Payment amount is malformed", err)
		}
		paid = paid.Add(value)
	}

	due := decimal.NewFromFloat(order.TotalPrice).Round(2)
	if !paid.Round(2).Equal(due) {
		return apperr.New(apperr.ErrPaymentMismatch,
			fmt.Sprintf("Payment amount %s does not match order total %s", paid.StringFixed(2), due.StringFixed(2)))
	}
	return nil
}
