package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductStore struct {
	coll *mongo.Collection
}

func NewProductStore(coll *mongo.Collection) *ProductStore {
	return &ProductStore{coll: coll}
}

// ProductQuery narrows a product listing. Empty fields match everything.
// Page is 1-based; a zero PageSize returns every match.
type ProductQuery struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

func (q ProductQuery) filter() bson.M {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	return filter
}

// Skip returns the number of matches before the requested page.
func (q ProductQuery) Skip() int {
	if q.PageSize <= 0 || q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

func productNotFound() error {
	return apperr.NotFound("Product Not Found")
}

func parseProductID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, productNotFound()
	}
	return oid, nil
}

func (s *ProductStore) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	var p models.Product
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, productNotFound()
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func (s *ProductStore) FindByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *ProductStore) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *ProductStore) Find(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.PageSize > 0 {
		opts.SetSkip(int64(q.Skip())).SetLimit(int64(q.PageSize))
	}

	cursor, err := s.coll.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// Count returns the number of products matching q, ignoring pagination.
func (s *ProductStore) Count(ctx context.Context, q ProductQuery) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, q.filter())
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *ProductStore) Categories(ctx context.Context) ([]string, error) {
	values, err := s.coll.Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	categories := make([]string, 0, len(values))
	for _, v := range values {
		if c, ok := v.(string); ok {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (s *ProductStore) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := []models.CategoryCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("decode category counts: %w", err)
	}
	return counts, nil
}

func (s *ProductStore) Insert(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Validation("Product name or slug already exists")
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update overwrites the editable catalog fields of the product. Reviews and
// their aggregates are only changed through AddReview.
func (s *ProductStore) Update(ctx context.Context, id string, p *models.Product) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{
		"name":         p.Name,
		"slug":         p.Slug,
		"image":        p.Image,
		"images":       p.Images,
		"brand":        p.Brand,
		"category":     p.Category,
		"description":  p.Description,
		"price":        p.Price,
		"countInStock": p.CountInStock,
		"updatedAt":    time.Now().UTC(),
	}}

	var updated models.Product
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, productNotFound()
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Validation("Product name or slug already exists")
		}
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}
	return &updated, nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := parseProductID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return productNotFound()
	}
	return nil
}

// AddReview appends the review and recomputes numReviews and rating in the
// same update. A reviewer may review a product only once.
func (s *ProductStore) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid, "reviews.name": bson.M{"$ne": review.Name}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.D{{Key: "$literal", Value: bson.A{review}}},
			}}}},
			{Key: "updatedAt", Value: review.UpdatedAt},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "numReviews", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
		}}},
	}

	var updated models.Product
	err = s.coll.FindOneAndUpdate(ctx, filter, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("add review to %s: %w", id, err)
	}

	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperr.Validation("You already submitted a review")
}
