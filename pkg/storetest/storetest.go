// Package storetest provides in-memory stand-ins for the storefront's
// stores and collaborators, for use in tests.
package storetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]models.Order
	writes int
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[primitive.ObjectID]models.Order)}
}

func orderID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound("Order Not Found")
	}
	return oid, nil
}

func (s *MemoryOrderStore) Insert(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = *order
	s.writes++
	return nil
}

// Writes counts successful mutations.
func (s *MemoryOrderStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryOrderStore) FindByID(_ context.Context, id string) (*models.Order, error) {
	oid, err := orderID(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[oid]
	if !ok {
		return nil, apperr.NotFound("Order Not Found")
	}
	return &o, nil
}

func (s *MemoryOrderStore) list(match func(models.Order) bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if match(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryOrderStore) FindByUser(_ context.Context, userID string) ([]models.Order, error) {
	return s.list(func(o models.Order) bool { return o.User == userID }), nil
}

func (s *MemoryOrderStore) FindAll(context.Context) ([]models.Order, error) {
	return s.list(func(models.Order) bool { return true }), nil
}

func (s *MemoryOrderStore) Delete(_ context.Context, id string) error {
	oid, err := orderID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[oid]; !ok {
		return apperr.NotFound("Order Not Found")
	}
	delete(s.orders, oid)
	s.writes++
	return nil
}

func (s *MemoryOrderStore) transition(id string, guard func(models.Order) bool, apply func(*models.Order)) (*models.Order, bool, error) {
	oid, err := orderID(id)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[oid]
	if !ok {
		return nil, false, apperr.NotFound("Order Not Found")
	}
	if !guard(o) {
		return &o, false, nil
	}
	apply(&o)
	s.orders[oid] = o
	s.writes++
	return &o, true, nil
}

func (s *MemoryOrderStore) MarkPaid(_ context.Context, id string, result models.PaymentResult, at time.Time) (*models.Order, bool, error) {
	return s.transition(id,
		func(o models.Order) bool { return !o.IsPaid },
		func(o *models.Order) {
			o.IsPaid = true
			o.PaidAt = &at
			o.PaymentResult = &result
			o.UpdatedAt = at
		})
}

func (s *MemoryOrderStore) MarkDelivered(_ context.Context, id string, at time.Time, requirePaid bool) (*models.Order, bool, error) {
	return s.transition(id,
		func(o models.Order) bool { return !o.IsDelivered && (!requirePaid || o.IsPaid) },
		func(o *models.Order) {
			o.IsDelivered = true
			o.DeliveredAt = &at
			o.UpdatedAt = at
		})
}

func (s *MemoryOrderStore) OrderStats(context.Context) ([]models.OrderStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.orders) == 0 {
		return []models.OrderStat{}, nil
	}
	stat := models.OrderStat{}
	for _, o := range s.orders {
		stat.NumOrders++
		stat.TotalSales += o.TotalPrice
	}
	return []models.OrderStat{stat}, nil
}

func (s *MemoryOrderStore) DailyStats(context.Context) ([]models.DailyStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDay := map[string]*models.DailyStat{}
	for _, o := range s.orders {
		day := o.CreatedAt.UTC().Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &models.DailyStat{Date: day}
			byDay[day] = d
		}
		d.Orders++
		d.Sales += o.TotalPrice
	}
	out := make([]models.DailyStat, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
	reads    int
}

func NewMemoryProductStore(products ...models.Product) *MemoryProductStore {
	s := &MemoryProductStore{products: make(map[primitive.ObjectID]models.Product)}
	for _, p := range products {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		s.products[p.ID] = p
	}
	return s
}

// Reads counts FindByID calls.
func (s *MemoryProductStore) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}

func productNotFound() error { return apperr.NotFound("Product Not Found") }

func (s *MemoryProductStore) FindByID(_ context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, productNotFound()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	p, ok := s.products[oid]
	if !ok {
		return nil, productNotFound()
	}
	return &p, nil
}

func (s *MemoryProductStore) FindBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, productNotFound()
}

func (s *MemoryProductStore) Find(_ context.Context, q repository.ProductQuery) ([]models.Product, error) {
	out := s.match(q)
	if q.PageSize <= 0 {
		return out, nil
	}
	start := q.Skip()
	if start >= len(out) {
		return []models.Product{}, nil
	}
	end := start + q.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *MemoryProductStore) Count(_ context.Context, q repository.ProductQuery) (int64, error) {
	return int64(len(s.match(q))), nil
}

func (s *MemoryProductStore) match(q repository.ProductQuery) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Product{}
	for _, p := range s.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *MemoryProductStore) Categories(context.Context) ([]string, error) {
	counts, _ := s.CategoryCounts(context.Background())
	out := make([]string, 0, len(counts))
	for _, c := range counts {
		out = append(out, c.Category)
	}
	return out, nil
}

func (s *MemoryProductStore) CategoryCounts(context.Context) ([]models.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int64{}
	for _, p := range s.products {
		counts[p.Category]++
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryProductStore) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.products {
		if existing.Name == p.Name || existing.Slug == p.Slug {
			return apperr.Validation("Product name or slug already exists")
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = *p
	return nil
}

func (s *MemoryProductStore) Update(_ context.Context, id string, p *models.Product) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, productNotFound()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.products[oid]
	if !ok {
		return nil, productNotFound()
	}
	current.Name, current.Slug, current.Image, current.Images = p.Name, p.Slug, p.Image, p.Images
	current.Brand, current.Category, current.Description = p.Brand, p.Category, p.Description
	current.Price, current.CountInStock = p.Price, p.CountInStock
	current.UpdatedAt = time.Now().UTC()
	s.products[oid] = current
	return &current, nil
}

func (s *MemoryProductStore) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return productNotFound()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[oid]; !ok {
		return productNotFound()
	}
	delete(s.products, oid)
	return nil
}

func (s *MemoryProductStore) AddReview(_ context.Context, id string, review models.Review) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, productNotFound()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[oid]
	if !ok {
		return nil, productNotFound()
	}
	for _, r := range p.Reviews {
		if r.Name == review.Name {
			return nil, apperr.Validation("You already submitted a review")
		}
	}
	p.Reviews = append(append([]models.Review{}, p.Reviews...), review)
	p.NumReviews = len(p.Reviews)
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(p.NumReviews)
	s.products[oid] = p
	return &p, nil
}

// StaticUsers is a fixed user directory.
type StaticUsers map[string]models.User

func (u StaticUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, apperr.NotFound("User Not Found")
	}
	return &user, nil
}

func (u StaticUsers) GetByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if user, ok := u[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

func (u StaticUsers) Count(context.Context) (int64, error) {
	return int64(len(u)), nil
}

// RecordingPublisher keeps every published event. Err, when set, is
// returned from Publish instead.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, e *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *RecordingPublisher) Events() []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.Event(nil), p.events...)
}

// FakeVerifier returns Err for every confirmation and counts calls.
type FakeVerifier struct {
	mu    sync.Mutex
	calls int
	Err   error
}

func (v *FakeVerifier) Verify(context.Context, *models.Order, models.PaymentResult) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	return v.Err
}

func (v *FakeVerifier) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// ErrUnavailable simulates a backend outage.
var ErrUnavailable = errors.New("backend unavailable")
