package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/apperr"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func NewMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

// UserRepository is the read side of the user directory: owner lookups for
// order listings and notifications, backed by MySQL with a Redis cache.
type UserRepository struct {
	db     *gorm.DB
	redis  *RedisRepository
	logger *zap.Logger
}

func NewUserRepository(db *gorm.DB, redis *RedisRepository, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, redis: redis, logger: logger}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	// Try cache first
	if r.redis != nil {
		if cached, err := r.redis.GetUserCache(ctx, id); err == nil {
			return cached, nil
		} else if !IsCacheMiss(err) {
			r.logger.Warn("User cache read failed", zap.String("user_id", id), zap.Error(err))
		}
	}

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User Not Found")
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	if r.redis != nil {
		if err := r.redis.CacheUser(ctx, &user); err != nil {
			r.logger.Warn("User cache write failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return &user, nil
}

// GetByIDs resolves many users in one query. Unknown ids are omitted.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Select("id", "name", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}
