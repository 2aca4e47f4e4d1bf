// Package orders owns the order lifecycle: placement with server-side
// pricing, payment reconciliation against the processor and delivery.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/pricing"
	"go.uber.org/zap"
)

// Store persists orders. MarkPaid and MarkDelivered apply only while the
// order is still unpaid or undelivered; applied reports whether this call
// made the change.
type Store interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByUser(ctx context.Context, userID string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	Delete(ctx context.Context, id string) error
	MarkPaid(ctx context.Context, id string, result models.PaymentResult, at time.Time) (order *models.Order, applied bool, err error)
	MarkDelivered(ctx context.Context, id string, at time.Time, requirePaid bool) (order *models.Order, applied bool, err error)
	OrderStats(ctx context.Context) ([]models.OrderStat, error)
	DailyStats(ctx context.Context) ([]models.DailyStat, error)
}

type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
}

type Users interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type Policy struct {
	RequirePaymentBeforeDelivery bool
}

type Deps struct {
	Store     Store
	Catalog   Catalog
	Users     Users
	Verifier  payment.Verifier
	Publisher events.Publisher
	Policy    Policy
	Logger    *zap.Logger
}

type Service struct {
	store          Store
	catalog        Catalog
	users          Users
	verifier       payment.Verifier
	publisher      events.Publisher
	policy         Policy
	logger         *zap.Logger
	now            func() time.Time
	publishTimeout time.Duration
}

func NewService(d Deps) *Service {
	verifier := d.Verifier
	if verifier == nil {
		verifier = payment.Noop{}
	}
	return &Service{
		store:          d.Store,
		catalog:        d.Catalog,
		users:          d.Users,
		verifier:       verifier,
		publisher:      d.Publisher,
		policy:         d.Policy,
		logger:         d.Logger,
		now:            time.Now,
		publishTimeout: 5 * time.Second,
	}
}

// ItemInput is one cart line. Clients send the product id as _id together
// with their copy of the product; only the id and quantity are used.
type ItemInput struct {
	ID       string `json:"_id"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

func (i ItemInput) ProductID() string {
	if i.Product != "" {
		return i.Product
	}
	return i.ID
}

type CreateInput struct {
	OrderItems      []ItemInput            `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`

	// Client-computed totals, compared with the server's for logging only.
	ItemsPrice    *float64 `json:"itemsPrice,omitempty"`
	ShippingPrice *float64 `json:"shippingPrice,omitempty"`
	TaxPrice      *float64 `json:"taxPrice,omitempty"`
	TotalPrice    *float64 `json:"totalPrice,omitempty"`
}

func (in CreateInput) clientPricing() (pricing.Breakdown, bool) {
	if in.ItemsPrice == nil || in.ShippingPrice == nil || in.TaxPrice == nil || in.TotalPrice == nil {
		return pricing.Breakdown{}, false
	}
	return pricing.Breakdown{
		ItemsPrice:    *in.ItemsPrice,
		ShippingPrice: *in.ShippingPrice,
		TaxPrice:      *in.TaxPrice,
		TotalPrice:    *in.TotalPrice,
	}, true
}

func (in CreateInput) validate() error {
	if len(in.OrderItems) == 0 {
		return apperr.Validation("Order must contain at least one item")
	}
	for _, item := range in.OrderItems {
		if item.ProductID() == "" {
			return apperr.Validation("Order item is missing its product")
		}
		if item.Quantity <= 0 {
			return apperr.Validation("Quantity must be at least 1")
		}
	}
	if !in.ShippingAddress.Complete() {
		return apperr.Validation("Shipping address is incomplete")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return apperr.Validation("Payment method is required")
	}
	return nil
}

// Create places an order for userID. Lines are snapshotted from the catalog
// and priced on the server.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Order, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(in.OrderItems))
	lines := make([]pricing.Line, 0, len(in.OrderItems))
	for _, req := range in.OrderItems {
		product, err := s.catalog.GetByID(ctx, req.ProductID())
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Validation(fmt.Sprintf("Product %s does not exist", req.ProductID()))
			}
			return nil, fmt.Errorf("load product %s: %w", req.ProductID(), err)
		}
		if err := catalog.CheckStock(product, req.Quantity); err != nil {
			return nil, err
		}
		item := product.Snapshot(req.Quantity)
		items = append(items, item)
		lines = append(lines, pricing.Line{Price: item.Price, Quantity: item.Quantity})
	}

	breakdown, err := pricing.Calculate(lines)
	if err != nil {
		return nil, err
	}
	if client, ok := in.clientPricing(); ok && !pricing.Equal(client, breakdown) {
		s.logger.Warn("Client totals differ from server pricing",
			zap.String("user_id", userID),
			zap.Float64("client_total", client.TotalPrice),
			zap.Float64("server_total", breakdown.TotalPrice))
	}

	order := &models.Order{
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      breakdown.ItemsPrice,
		ShippingPrice:   breakdown.ShippingPrice,
		TaxPrice:        breakdown.TaxPrice,
		TotalPrice:      breakdown.TotalPrice,
		User:            userID,
	}
	if err := s.store.Insert(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.Hex()),
		zap.String("user_id", userID),
		zap.Int("item_count", len(items)),
		zap.Float64("total", order.TotalPrice))
	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.FindByUser(ctx, userID)
}

// ListAll returns every order with its owner resolved to id and name. The
// owner is nil when the user no longer exists.
func (s *Service) ListAll(ctx context.Context) ([]models.OrderWithUser, error) {
	orders, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.User]; ok || o.User == "" {
			continue
		}
		seen[o.User] = struct{}{}
		ids = append(ids, o.User)
	}
	owners, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.OrderWithUser, 0, len(orders))
	for _, o := range orders {
		row := models.OrderWithUser{Order: o}
		if u, ok := owners[o.User]; ok {
			row.User = &models.UserRef{ID: u.ID, Name: u.Name}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Order deleted", zap.String("order_id", id))
	return nil
}

func (s *Service) Summary(ctx context.Context) (*models.Summary, error) {
	numUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	orderStats, err := s.store.OrderStats(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.store.DailyStats(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.catalog.CategoryCounts(ctx)
	if err != nil {
		return nil, err
	}

	users := []models.UserStat{}
	if numUsers > 0 {
		users = append(users, models.UserStat{NumUsers: numUsers})
	}
	return &models.Summary{
		Users:             users,
		Orders:            orderStats,
		DailyOrders:       daily,
		ProductCategories: categories,
	}, nil
}
