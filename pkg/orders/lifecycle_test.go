package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/storetest"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type lifecycleContext struct {
	products  *storetest.MemoryProductStore
	bySlug    map[string]models.Product
	store     *storetest.MemoryOrderStore
	publisher *storetest.RecordingPublisher
	verifier  *storetest.FakeVerifier
	service   *Service
	clock     time.Time

	order         *models.Order
	firstDelivery time.Time
	err           error
}

func (c *lifecycleContext) reset() {
	c.bySlug = map[string]models.Product{}
	c.store = storetest.NewMemoryOrderStore()
	c.publisher = &storetest.RecordingPublisher{}
	c.verifier = &storetest.FakeVerifier{}
	c.clock = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c.order = nil
	c.firstDelivery = time.Time{}
	c.err = nil
}

func (c *lifecycleContext) build() {
	c.service = NewService(Deps{
		Store:     c.store,
		Catalog:   catalogOf(c.products),
		Users:     storetest.StaticUsers{},
		Verifier:  c.verifier,
		Publisher: c.publisher,
		Logger:    zap.NewNop(),
	})
	c.service.now = func() time.Time { return c.clock }
}

func (c *lifecycleContext) theCatalogHasTheProducts(table *godog.Table) error {
	var products []models.Product
	for i, row := range table.Rows {
		if i == 0 {
			continue // skip header
		}
		price, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return err
		}
		p := models.Product{
			ID:           primitive.NewObjectID(),
			Slug:         row.Cells[0].Value,
			Name:         row.Cells[1].Value,
			Price:        price,
			CountInStock: stock,
		}
		c.bySlug[p.Slug] = p
		products = append(products, p)
	}
	c.products = storetest.NewMemoryProductStore(products...)
	c.build()
	return nil
}

func (c *lifecycleContext) place(user string, items []ItemInput) {
	c.order, c.err = c.service.Create(context.Background(), user, CreateInput{
		OrderItems: items,
		ShippingAddress: models.ShippingAddress{
			FullName: "Jane Doe", Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "PayPal",
	})
}

func (c *lifecycleContext) customerOrders(user string, table *godog.Table) error {
	var items []ItemInput
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		p, ok := c.bySlug[row.Cells[0].Value]
		if !ok {
			return fmt.Errorf("unknown product %q", row.Cells[0].Value)
		}
		qty, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return err
		}
		items = append(items, ItemInput{ID: p.ID.Hex(), Quantity: qty})
	}
	c.place(user, items)
	return nil
}

func (c *lifecycleContext) customerHasPlacedAnOrderFor(user string, qty int, slug string) error {
	p, ok := c.bySlug[slug]
	if !ok {
		return fmt.Errorf("unknown product %q", slug)
	}
	c.place(user, []ItemInput{{ID: p.ID.Hex(), Quantity: qty}})
	return c.err
}

func (c *lifecycleContext) theProcessorReportsADifferentAmount() error {
	c.verifier.Err = apperr.New(apperr.ErrPaymentMismatch, "Payment amount does not match order total")
	return nil
}

func (c *lifecycleContext) thePaymentIsConfirmed(paymentID string) error {
	_, c.err = c.service.ConfirmPayment(context.Background(), c.order.ID.Hex(), models.PaymentResult{
		ID:           paymentID,
		Status:       "COMPLETED",
		UpdateTime:   c.clock.Format(time.RFC3339),
		EmailAddress: "buyer@example.com",
	})
	return nil
}

func (c *lifecycleContext) theOrderIsDelivered() error {
	delivered, err := c.service.MarkDelivered(context.Background(), c.order.ID.Hex())
	if err != nil {
		return err
	}
	if c.firstDelivery.IsZero() {
		c.firstDelivery = *delivered.DeliveredAt
	}
	return nil
}

func (c *lifecycleContext) anHourPasses() error {
	c.clock = c.clock.Add(time.Hour)
	return nil
}

func (c *lifecycleContext) reload() (*models.Order, error) {
	if c.order == nil {
		return nil, fmt.Errorf("no order was placed: %v", c.err)
	}
	return c.service.Get(context.Background(), c.order.ID.Hex())
}

func (c *lifecycleContext) theOrderTotalsAre(items, shipping, tax, total float64) error {
	if c.err != nil {
		return fmt.Errorf("expected an order but got error: %v", c.err)
	}
	got := [4]float64{c.order.ItemsPrice, c.order.ShippingPrice, c.order.TaxPrice, c.order.TotalPrice}
	want := [4]float64{items, shipping, tax, total}
	if got != want {
		return fmt.Errorf("expected totals %v, got %v", want, got)
	}
	return nil
}

func (c *lifecycleContext) theOrderIsNotPaid() error {
	o, err := c.reload()
	if err != nil {
		return err
	}
	if o.IsPaid || o.PaidAt != nil || o.PaymentResult != nil {
		return errors.New("expected an unpaid order")
	}
	return nil
}

func (c *lifecycleContext) theOrderIsNotDelivered() error {
	o, err := c.reload()
	if err != nil {
		return err
	}
	if o.IsDelivered || o.DeliveredAt != nil {
		return errors.New("expected an undelivered order")
	}
	return nil
}

func (c *lifecycleContext) theOrderIsPaidWithPayment(paymentID string) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %v", c.err)
	}
	o, err := c.reload()
	if err != nil {
		return err
	}
	if !o.IsPaid || o.PaidAt == nil || o.PaymentResult == nil {
		return errors.New("expected a paid order")
	}
	if o.PaymentResult.ID != paymentID {
		return fmt.Errorf("expected payment %s, got %s", paymentID, o.PaymentResult.ID)
	}
	return nil
}

func (c *lifecycleContext) eventsWerePublished(n int, eventType string) error {
	count := 0
	for _, e := range c.publisher.Events() {
		if e.Type == eventType {
			count++
		}
	}
	if count != n {
		return fmt.Errorf("expected %d %s events, got %d", n, eventType, count)
	}
	return nil
}

func (c *lifecycleContext) theRequestFailsWith(kind string) error {
	if c.err == nil {
		return errors.New("expected an error")
	}
	for _, sentinel := range []error{apperr.ErrNotFound, apperr.ErrValidation, apperr.ErrPaymentMismatch, apperr.ErrNotPaid, apperr.ErrUpstream} {
		if sentinel.Error() == kind {
			if !errors.Is(c.err, sentinel) {
				return fmt.Errorf("expected %q, got %v", kind, c.err)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", kind)
}

func (c *lifecycleContext) theOrderIsDeliveredAtTheFirstDeliveryTime() error {
	o, err := c.reload()
	if err != nil {
		return err
	}
	if o.DeliveredAt == nil || !o.DeliveredAt.Equal(c.firstDelivery) {
		return fmt.Errorf("expected delivery at %s, got %v", c.firstDelivery, o.DeliveredAt)
	}
	return nil
}

func (c *lifecycleContext) theOrderWasDeliveredAfterItWasPaid() error {
	o, err := c.reload()
	if err != nil {
		return err
	}
	if !o.IsPaid || o.PaidAt == nil || !o.IsDelivered || o.DeliveredAt == nil {
		return fmt.Errorf("expected a paid and delivered order, got paid=%v delivered=%v", o.IsPaid, o.IsDelivered)
	}
	if o.DeliveredAt.Before(*o.PaidAt) {
		return fmt.Errorf("delivered at %s before paid at %s", o.DeliveredAt, o.PaidAt)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	lc := &lifecycleContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		lc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog has the products:$`, lc.theCatalogHasTheProducts)
	ctx.Step(`^customer "([^"]*)" has placed an order for (\d+) "([^"]*)"$`, lc.customerHasPlacedAnOrderFor)
	ctx.Step(`^the processor reports a different amount$`, lc.theProcessorReportsADifferentAmount)

	// When steps
	ctx.Step(`^customer "([^"]*)" orders:$`, lc.customerOrders)
	ctx.Step(`^the payment "([^"]*)" is confirmed$`, lc.thePaymentIsConfirmed)
	ctx.Step(`^the order is delivered$`, lc.theOrderIsDelivered)
	ctx.Step(`^an hour passes$`, lc.anHourPasses)

	// Then steps
	ctx.Step(`^the order totals are (\d+\.\d+) items, (\d+\.\d+) shipping, (\d+\.\d+) tax and (\d+\.\d+) total$`, lc.theOrderTotalsAre)
	ctx.Step(`^the order is not paid$`, lc.theOrderIsNotPaid)
	ctx.Step(`^the order is not delivered$`, lc.theOrderIsNotDelivered)
	ctx.Step(`^the order is paid with payment "([^"]*)"$`, lc.theOrderIsPaidWithPayment)
	ctx.Step(`^(\d+) "([^"]*)" events? (?:was|were) published$`, lc.eventsWerePublished)
	ctx.Step(`^the request fails with "([^"]*)"$`, lc.theRequestFailsWith)
	ctx.Step(`^the order is delivered at the first delivery time$`, lc.theOrderIsDeliveredAtTheFirstDeliveryTime)
	ctx.Step(`^the order was delivered after it was paid$`, lc.theOrderWasDeliveredAfterItWasPaid)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
