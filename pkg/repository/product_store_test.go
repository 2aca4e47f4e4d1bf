package repository

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestProductQuerySkip(t *testing.T) {
	tests := []struct {
		q    ProductQuery
		want int
	}{
		{ProductQuery{}, 0},
		{ProductQuery{Page: 3}, 0},
		{ProductQuery{Page: 0, PageSize: 10}, 0},
		{ProductQuery{Page: 1, PageSize: 10}, 0},
		{ProductQuery{Page: 3, PageSize: 10}, 20},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.Skip(), "%+v", tt.q)
	}
}

func TestProductStorePaging(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("count", func(mt *mtest.T) {
		store := NewProductStore(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: 1},
			{Key: "n", Value: int32(23)},
		}))

		n, err := store.Count(ctx, ProductQuery{Category: "Shirts", Page: 2, PageSize: 10})
		require.NoError(mt, err)
		assert.EqualValues(mt, 23, n)
	})

	mt.Run("find page", func(mt *mtest.T) {
		store := NewProductStore(mt.Coll)
		p := models.Product{ID: primitive.NewObjectID(), Name: "Nike Slim Shirt", Slug: "nike-slim-shirt", Price: 25}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch, toDoc(mt.T, p)))

		got, err := store.Find(ctx, ProductQuery{Page: 2, PageSize: 10})
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "nike-slim-shirt", got[0].Slug)
	})
}
