// Package pricing derives the itemized price breakdown of a cart.
//
// All arithmetic is carried out in decimal and rounded half away from zero
// to cents, so values such as 1.005 round to 1.01 regardless of their
// binary float representation.
package pricing

import (
	"fmt"

	"github.com/example/storefront/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	// Orders strictly above this subtotal ship for free.
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
	TaxRate               = decimal.RequireFromString("0.15")
)

type Line struct {
	Price    float64
	Quantity int
}

type Breakdown struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

func Calculate(lines []Line) (Breakdown, error) {
	items := decimal.Zero
	for i, l := range lines {
		if l.Price < 0 {
			return Breakdown{}, apperr.Validation(fmt.Sprintf("line %d: price must not be negative", i))
		}
		if l.Quantity < 0 {
			return Breakdown{}, apperr.Validation(fmt.Sprintf("line %d: quantity must not be negative", i))
		}
		items = items.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	items = items.Round(2)

	shipping := FlatShipping
	if items.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := items.Mul(TaxRate).Round(2)
	total := items.Add(shipping).Add(tax)

	return Breakdown{
		ItemsPrice:    items.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}, nil
}

// Equal compares two breakdowns to the cent.
func Equal(a, b Breakdown) bool {
	eq := func(x, y float64) bool {
		return decimal.NewFromFloat(x).Round(2).Equal(decimal.NewFromFloat(y).Round(2))
	}
	return eq(a.ItemsPrice, b.ItemsPrice) &&
		eq(a.ShippingPrice, b.ShippingPrice) &&
		eq(a.TaxPrice, b.TaxPrice) &&
		eq(a.TotalPrice, b.TotalPrice)
}
