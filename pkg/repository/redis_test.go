package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := NewRedisRepositoryFromClient(client, &config.RedisConfig{CacheTTL: time.Minute})
	t.Cleanup(func() { _ = repo.Close() })
	return repo, srv
}

func TestRedisRepository_ProductCache(t *testing.T) {
	repo, srv := newTestRedis(t)
	ctx := context.Background()

	p := &models.Product{ID: primitive.NewObjectID(), Name: "Adidas Fit Pant", Slug: "adidas-fit-pant", Price: 65, CountInStock: 4}
	require.NoError(t, repo.CacheProduct(ctx, p))
	assert.True(t, srv.Exists("product:"+p.ID.Hex()))
	assert.Equal(t, time.Minute, srv.TTL("product:"+p.ID.Hex()))

	got, err := repo.GetProductCache(ctx, p.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.CountInStock, got.CountInStock)

	require.NoError(t, repo.InvalidateProduct(ctx, p.ID.Hex()))
	_, err = repo.GetProductCache(ctx, p.ID.Hex())
	assert.True(t, IsCacheMiss(err))
}

func TestRedisRepository_JSONStoredAsString(t *testing.T) {
	repo, srv := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SetJSON(ctx, "k", map[string]int{"n": 1}, time.Minute))
	raw, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, raw)

	require.NoError(t, repo.Set(ctx, "k", "not json", 0))
	var dest map[string]int
	assert.Error(t, repo.GetJSON(ctx, "k", &dest))
	assert.Equal(t, time.Duration(0), srv.TTL("k"))

	_, err = repo.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisRepository_UserCache(t *testing.T) {
	repo, _ := newTestRedis(t)
	ctx := context.Background()

	_, err := repo.GetUserCache(ctx, "u-1")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, repo.CacheUser(ctx, &models.User{ID: "u-1", Name: "Jane", Email: "jane@example.com"}))
	got, err := repo.GetUserCache(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestRedisRepository_Claim(t *testing.T) {
	repo, srv := newTestRedis(t)
	ctx := context.Background()

	first, err := repo.Claim(ctx, "receipt:o-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.Claim(ctx, "receipt:o-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	srv.FastForward(2 * time.Hour)
	again, err := repo.Claim(ctx, "receipt:o-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestRedisRepository_Queue(t *testing.T) {
	repo, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Push(ctx, "events", []byte("first")))
	require.NoError(t, repo.Push(ctx, "events", []byte("second")))

	got, err := repo.Pop(ctx, "events", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	got, err = repo.Pop(ctx, "events", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestRedisRepository_PopTimeout(t *testing.T) {
	repo, _ := newTestRedis(t)

	_, err := repo.Pop(context.Background(), "empty", 100*time.Millisecond)
	assert.True(t, IsCacheMiss(err))
}
