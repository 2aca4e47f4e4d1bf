package repository

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) Orders() *OrderStore {
	return NewOrderStore(m.database.Collection(m.config.OrdersCollection))
}

func (m *MongoRepository) Products() *ProductStore {
	return NewProductStore(m.database.Collection(m.config.ProductsCollection))
}

// EnsureIndexes creates the indexes the stores rely on: unique product
// name and slug, and the owner lookup on orders.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	products := m.database.Collection(m.config.ProductsCollection)
	_, err := products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	orders := m.database.Collection(m.config.OrdersCollection)
	_, err = orders.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}
