package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/pkg/models"
)

// RecommendationCache stores rendered recommendation lists per user.
type RecommendationCache interface {
	Get(ctx context.Context, key string) (*models.RecommendationResponse, bool, error)
	Set(ctx context.Context, key string, resp *models.RecommendationResponse, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

func cacheKey(userID uuid.UUID, mode string, limit int) string {
	return fmt.Sprintf("recs:%s:%s:%d", userID, mode, limit)
}

type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(client *redis.Client, logger *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.RecommendationResponse, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var resp models.RecommendationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached recommendations: %w", err)
	}
	return &resp, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, resp *models.RecommendationResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// InvalidateUser drops every cached list of userID.
func (c *RedisCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	pattern := fmt.Sprintf("recs:%s:*", userID)

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"keys":    deleted,
	}).Debug("Invalidated recommendation cache")
	return nil
}
