package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// Store is the persistent product collection.
type Store interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	Find(ctx context.Context, q repository.ProductQuery) ([]models.Product, error)
	Count(ctx context.Context, q repository.ProductQuery) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id string, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error)
}

// Cache holds products by id in front of the Store.
type Cache interface {
	GetProductCache(ctx context.Context, id string) (*models.Product, error)
	CacheProduct(ctx context.Context, p *models.Product) error
	InvalidateProduct(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the catalog. cache may be nil.
func NewService(store Store, cache Cache, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProductCache(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !repository.IsCacheMiss(err) {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		}
	}

	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CacheProduct(ctx, p); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.store.FindBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context, q repository.ProductQuery) ([]models.Product, error) {
	return s.store.Find(ctx, q)
}

// AdminPageSize is the number of products per admin listing page.
const AdminPageSize = 10

// ProductPage is one page of the admin product listing.
type ProductPage struct {
	Products      []models.Product `json:"products"`
	CountProducts int64            `json:"countProducts"`
	Page          int              `json:"page"`
	Pages         int              `json:"pages"`
}

// AdminPage returns the requested page of every product, newest first.
// Pages below 1 are treated as the first.
func (s *Service) AdminPage(ctx context.Context, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	q := repository.ProductQuery{Page: page, PageSize: AdminPageSize}

	total, err := s.store.Count(ctx, q)
	if err != nil {
		return nil, err
	}
	products, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Products:      products,
		CountProducts: total,
		Page:          page,
		Pages:         int((total + AdminPageSize - 1) / AdminPageSize),
	}, nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

func (s *Service) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	return s.store.CategoryCounts(ctx)
}

// Sample returns the placeholder product an admin creates before editing it.
func (s *Service) Sample() *models.Product {
	stamp := s.now().UnixMilli()
	return &models.Product{
		Name:        fmt.Sprintf("sample name %d", stamp),
		Slug:        fmt.Sprintf("sample-name-%d", stamp),
		Image:       "/images/p1.jpg",
		Category:    "sample category",
		Brand:       "sample brand",
		Description: "sample description",
	}
}

func validateProduct(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return apperr.Validation("Product name is required")
	case strings.TrimSpace(p.Slug) == "":
		return apperr.Validation("Product slug is required")
	case p.Price < 0:
		return apperr.Validation("Product price cannot be negative")
	case p.CountInStock < 0:
		return apperr.Validation("Product stock cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.Rating = 0
	p.NumReviews = 0
	p.Reviews = nil
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.String("product_id", p.ID.Hex()), zap.String("slug", p.Slug))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, p *models.Product) (*models.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ReviewInput is a customer review as submitted.
type ReviewInput struct {
	Rating  float64 `json:"rating"`
	Comment string  `json:"comment"`
}

// AddReview records a review by reviewer and returns the product with its
// recomputed rating and review count.
func (s *Service) AddReview(ctx context.Context, id, reviewer string, in ReviewInput) (*models.Product, error) {
	if strings.TrimSpace(reviewer) == "" {
		return nil, apperr.Validation("Reviewer name is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return nil, apperr.Validation("Comment is required")
	}

	now := s.now().UTC()
	updated, err := s.store.AddReview(ctx, id, models.Review{
		Name:      reviewer,
		Comment:   in.Comment,
		Rating:    in.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("product_id", id), zap.Error(err))
	}
}

// QuoteLine asks for quantity units of a product.
type QuoteLine struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type Quote struct {
	Items []models.OrderItem `json:"orderItems"`
	pricing.Breakdown
}

// Quote prices a cart against current catalog prices and stock.
func (s *Service) Quote(ctx context.Context, lines []QuoteLine) (*Quote, error) {
	items := make([]models.OrderItem, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.Validation("Quantity must be at least 1")
		}
		p, err := s.GetByID(ctx, l.Product)
		if err != nil {
			return nil, err
		}
		if err := CheckStock(p, l.Quantity); err != nil {
			return nil, err
		}
		item := p.Snapshot(l.Quantity)
		items = append(items, item)
		priced = append(priced, pricing.Line{Price: item.Price, Quantity: item.Quantity})
	}

	breakdown, err := pricing.Calculate(priced)
	if err != nil {
		return nil, err
	}
	return &Quote{Items: items, Breakdown: breakdown}, nil
}

// CheckStock rejects a quantity above what the product has on hand.
func CheckStock(p *models.Product, quantity int) error {
	if quantity > p.CountInStock {
		return apperr.Validation(fmt.Sprintf("Sorry. %s is out of stock", p.Name))
	}
	return nil
}
