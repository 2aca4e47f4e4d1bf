package repository

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserRepository_GetByIDServesFromCache(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.CacheUser(ctx, &models.User{ID: "u-7", Name: "Cached", Email: "cached@example.com"}))

	// No database: a cache hit must not reach it.
	repo := NewUserRepository(nil, cache, zap.NewNop())
	user, err := repo.GetByID(ctx, "u-7")
	require.NoError(t, err)
	assert.Equal(t, "Cached", user.Name)
}

func TestUserRepository_GetByIDsEmpty(t *testing.T) {
	repo := NewUserRepository(nil, nil, zap.NewNop())
	users, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}
