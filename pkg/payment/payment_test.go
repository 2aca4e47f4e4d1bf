package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/plutov/paypal/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakePayPal struct {
	tokenErr  error
	tokens    int
	order     *paypal.Order
	orderErr  error
	requested string
}

func (f *fakePayPal) GetAccessToken(context.Context) (*paypal.TokenResponse, error) {
	f.tokens++
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &paypal.TokenResponse{Token: "token"}, nil
}

func (f *fakePayPal) GetOrder(_ context.Context, id string) (*paypal.Order, error) {
	f.requested = id
	return f.order, f.orderErr
}

func completed(currency string, values ...string) *paypal.Order {
	units := make([]paypal.PurchaseUnit, 0, len(values))
	for _, v := range values {
		units = append(units, paypal.PurchaseUnit{Amount: &paypal.PurchaseUnitAmount{Currency: currency, Value: v}})
	}
	return &paypal.Order{ID: "PAY-1", Status: StatusCompleted, PurchaseUnits: units}
}

func processorError(status int) error {
	req, _ := http.NewRequest(http.MethodGet, "https://api-m.sandbox.paypal.com/v2/checkout/orders/PAY-1", nil)
	return &paypal.ErrorResponse{Response: &http.Response{StatusCode: status, Request: req}}
}

func orderTotal(total float64) *models.Order {
	return &models.Order{ID: primitive.NewObjectID(), TotalPrice: total}
}

func TestPayPalVerifier(t *testing.T) {
	confirmation := models.PaymentResult{ID: "PAY-1", Status: "COMPLETED", UpdateTime: "now", EmailAddress: "buyer@example.com"}

	tests := []struct {
		name    string
		fake    *fakePayPal
		total   float64
		wantErr error
	}{
		{name: "matching capture", fake: &fakePayPal{order: completed("USD", "102.00")}, total: 102},
		{name: "split across units", fake: &fakePayPal{order: completed("USD", "60.00", "42.50")}, total: 102.5},
		{name: "lowercase currency", fake: &fakePayPal{order: completed("usd", "9.99")}, total: 9.99},
		{name: "amount short by a cent", fake: &fakePayPal{order: completed("USD", "101.99")}, total: 102, wantErr: apperr.ErrPaymentMismatch},
		{name: "wrong currency", fake: &fakePayPal{order: completed("EUR", "102.00")}, total: 102, wantErr: apperr.ErrPaymentMismatch},
		{name: "not completed", fake: &fakePayPal{order: &paypal.Order{Status: "APPROVED"}}, total: 102, wantErr: apperr.ErrPaymentMismatch},
		{name: "malformed amount", fake: &fakePayPal{order: completed("USD", "lots")}, total: 102, wantErr: apperr.ErrPaymentMismatch},
		{
			name:    "unknown processor order",
			fake:    &fakePayPal{orderErr: processorError(http.StatusNotFound)},
			total:   102,
			wantErr: apperr.ErrPaymentMismatch,
		},
		{
			name:    "processor outage",
			fake:    &fakePayPal{orderErr: processorError(http.StatusServiceUnavailable)},
			total:   102,
			wantErr: apperr.ErrUpstream,
		},
		{name: "network error", fake: &fakePayPal{orderErr: errors.New("dial tcp: refused")}, total: 102, wantErr: apperr.ErrUpstream},
		{name: "token failure", fake: &fakePayPal{tokenErr: errors.New("401")}, total: 102, wantErr: apperr.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newPayPalVerifier(tt.fake, "USD", zap.NewNop())
			err := v.Verify(context.Background(), orderTotal(tt.total), confirmation)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "PAY-1", tt.fake.requested)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPayPalVerifier_AuthenticatesOnce(t *testing.T) {
	fake := &fakePayPal{order: completed("USD", "10.00")}
	v := newPayPalVerifier(fake, "", zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NoError(t, v.Verify(context.Background(), orderTotal(10), models.PaymentResult{ID: "PAY-1"}))
	}
	assert.Equal(t, 1, fake.tokens)
}

func TestNewSelectsNoopWhenDisabled(t *testing.T) {
	v, err := New(&config.PayPalConfig{Verify: false}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Noop{}, v)
	assert.NoError(t, v.Verify(context.Background(), orderTotal(1), models.PaymentResult{}))
}
