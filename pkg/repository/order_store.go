package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders as documents. Paid and delivered transitions
// are conditional updates so concurrent callers cannot both apply them.
type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(coll *mongo.Collection) *OrderStore {
	return &OrderStore{coll: coll}
}

func orderNotFound() error {
	return apperr.NotFound("Order Not Found")
}

func parseOrderID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, orderNotFound()
	}
	return oid, nil
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orderNotFound()
		}
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return &order, nil
}

func (s *OrderStore) find(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *OrderStore) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.find(ctx, bson.M{"user": userID})
}

func (s *OrderStore) FindAll(ctx context.Context) ([]models.Order, error) {
	return s.find(ctx, bson.M{})
}

func (s *OrderStore) Delete(ctx context.Context, id string) error {
	oid, err := parseOrderID(id)
	if err != nil {
		return err
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return orderNotFound()
	}
	return nil
}

// transition applies update only when filter still matches. When it does
// not, the current document is returned with applied=false, or NotFound if
// the order is gone.
func (s *OrderStore) transition(ctx context.Context, id string, guard bson.M, update bson.M) (*models.Order, bool, error) {
	oid, err := parseOrderID(id)
	if err != nil {
		return nil, false, err
	}

	filter := bson.M{"_id": oid}
	for k, v := range guard {
		filter[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("update order %s: %w", id, err)
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (s *OrderStore) MarkPaid(ctx context.Context, id string, result models.PaymentResult, at time.Time) (*models.Order, bool, error) {
	return s.transition(ctx, id,
		bson.M{"isPaid": false},
		bson.M{"$set": bson.M{
			"isPaid":        true,
			"paidAt":        at,
			"paymentResult": result,
			"updatedAt":     at,
		}},
	)
}

func (s *OrderStore) MarkDelivered(ctx context.Context, id string, at time.Time, requirePaid bool) (*models.Order, bool, error) {
	guard := bson.M{"isDelivered": false}
	if requirePaid {
		guard["isPaid"] = true
	}
	return s.transition(ctx, id, guard,
		bson.M{"$set": bson.M{
			"isDelivered": true,
			"deliveredAt": at,
			"updatedAt":   at,
		}},
	)
}

func (s *OrderStore) OrderStats(ctx context.Context) ([]models.OrderStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "numOrders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalSales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
	}
	stats := []models.OrderStat{}
	if err := s.aggregate(ctx, pipeline, &stats); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return stats, nil
}

func (s *OrderStore) DailyStats(ctx context.Context) ([]models.DailyStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sales", Value: bson.D{{Key: "$sum", Value: "$totalPrice"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	stats := []models.DailyStat{}
	if err := s.aggregate(ctx, pipeline, &stats); err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	return stats, nil
}

func (s *OrderStore) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}
