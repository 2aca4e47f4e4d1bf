package pricing

import (
	"testing"

	"github.com/example/storefront/pkg/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  Breakdown
	}{
		{
			name:  "mixed cart under threshold",
			lines: []Line{{Price: 25, Quantity: 2}, {Price: 30, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 80, ShippingPrice: 10, TaxPrice: 12, TotalPrice: 102},
		},
		{
			name:  "exactly at threshold still pays shipping",
			lines: []Line{{Price: 100, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 100, ShippingPrice: 10, TaxPrice: 15, TotalPrice: 125},
		},
		{
			name:  "one cent over threshold ships free",
			lines: []Line{{Price: 100.01, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 100.01, ShippingPrice: 0, TaxPrice: 15, TotalPrice: 115.01},
		},
		{
			name:  "tax on 85",
			lines: []Line{{Price: 85, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 85, ShippingPrice: 10, TaxPrice: 12.75, TotalPrice: 107.75},
		},
		{
			name:  "binary representation edge",
			lines: []Line{{Price: 1.005, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 1.01, ShippingPrice: 10, TaxPrice: 0.15, TotalPrice: 11.16},
		},
		{
			name:  "float drift in sum",
			lines: []Line{{Price: 0.1, Quantity: 3}, {Price: 0.2, Quantity: 1}},
			want:  Breakdown{ItemsPrice: 0.5, ShippingPrice: 10, TaxPrice: 0.08, TotalPrice: 10.58},
		},
		{
			name:  "empty cart",
			lines: nil,
			want:  Breakdown{ItemsPrice: 0, ShippingPrice: 10, TaxPrice: 0, TotalPrice: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.lines)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculate_TotalIsSumOfParts(t *testing.T) {
	prices := []float64{0.01, 0.99, 1.005, 9.99, 19.95, 33.33, 49.99, 99.995, 249.5}
	for _, p := range prices {
		for q := 0; q <= 7; q++ {
			b, err := Calculate([]Line{{Price: p, Quantity: q}, {Price: 3.35, Quantity: 1}})
			require.NoError(t, err)
			assert.Equal(t, Round2(b.ItemsPrice+b.ShippingPrice+b.TaxPrice), b.TotalPrice, "price=%v qty=%d", p, q)
			wantTax := decimal.NewFromFloat(b.ItemsPrice).Mul(TaxRate).Round(2).InexactFloat64()
			assert.Equal(t, wantTax, b.TaxPrice, "price=%v qty=%d", p, q)
			if b.ItemsPrice > 100 {
				assert.Zero(t, b.ShippingPrice)
			} else {
				assert.Equal(t, 10.0, b.ShippingPrice)
			}
		}
	}
}

func TestCalculate_RejectsNegativeInput(t *testing.T) {
	_, err := Calculate([]Line{{Price: -1, Quantity: 1}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Calculate([]Line{{Price: 10, Quantity: 1}, {Price: 1, Quantity: -2}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, 12.75, Round2(12.75))
}

func TestEqual(t *testing.T) {
	a := Breakdown{ItemsPrice: 80, ShippingPrice: 10, TaxPrice: 12, TotalPrice: 102}
	b := Breakdown{ItemsPrice: 80.001, ShippingPrice: 10, TaxPrice: 12, TotalPrice: 102}
	assert.True(t, Equal(a, b))
	b.TotalPrice = 90
	assert.False(t, Equal(a, b))
}
