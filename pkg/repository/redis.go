package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return NewRedisRepositoryFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), cfg)
}

func NewRedisRepositoryFromClient(client *redis.Client, cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{client: client, config: cfg}
}

// IsCacheMiss reports whether err means the key does not exist.
func IsCacheMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Set(ctx, key, data, expiration)
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Claim sets key only if it is absent. It returns true for the first caller.
func (r *RedisRepository) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Push appends a payload to the head of a list used as a FIFO queue.
func (r *RedisRepository) Push(ctx context.Context, key string, payload []byte) error {
	return r.client.LPush(ctx, key, payload).Err()
}

// Pop blocks up to timeout for the oldest payload of the queue. It returns
// redis.Nil when nothing arrived in time.
func (r *RedisRepository) Pop(ctx context.Context, key string, timeout time.Duration) ([]byte, error) {
	res, err := r.client.BRPop(ctx, timeout, key).Result()
	if err != nil {
		return nil, err
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	return []byte(res[1]), nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) ttl() time.Duration {
	if r.config == nil || r.config.CacheTTL <= 0 {
		return 30 * time.Minute
	}
	return r.config.CacheTTL
}

func userKey(id string) string    { return fmt.Sprintf("user:%s", id) }
func productKey(id string) string { return fmt.Sprintf("product:%s", id) }

func (r *RedisRepository) CacheUser(ctx context.Context, user *models.User) error {
	return r.SetJSON(ctx, userKey(user.ID), user, r.ttl())
}

func (r *RedisRepository) GetUserCache(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := r.GetJSON(ctx, userKey(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *RedisRepository) CacheProduct(ctx context.Context, p *models.Product) error {
	return r.SetJSON(ctx, productKey(p.ID.Hex()), p, r.ttl())
}

func (r *RedisRepository) GetProductCache(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.GetJSON(ctx, productKey(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *RedisRepository) InvalidateProduct(ctx context.Context, id string) error {
	return r.Del(ctx, productKey(id))
}
