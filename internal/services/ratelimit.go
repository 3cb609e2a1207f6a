package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime int64
}

// RateLimitService is a Redis sliding-window limiter keyed by client.
type RateLimitService struct {
	redisClient *redis.Client
	limit       int
	window      time.Duration
	logger      *logrus.Logger
}

func NewRateLimitService(redisClient *redis.Client, limit int, window time.Duration, logger *logrus.Logger) *RateLimitService {
	return &RateLimitService{
		redisClient: redisClient,
		limit:       limit,
		window:      window,
		logger:      logger,
	}
}

// Allow records one request for client. Redis failures allow the request.
func (s *RateLimitService) Allow(ctx context.Context, client string) (bool, *RateLimitInfo) {
	key := fmt.Sprintf("rate_limit:%s", client)
	now := time.Now()
	windowStart := now.Add(-s.window)
	info := &RateLimitInfo{Limit: s.limit, ResetTime: now.Add(s.window).Unix()}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	pipe := s.redisClient.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, s.window)

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Warn("Rate limit check failed, allowing request")
		info.Remaining = s.limit - 1
		return true, info
	}

	remaining := s.limit - int(countCmd.Val()) - 1
	if remaining < 0 {
		info.Remaining = 0
		return false, info
	}
	info.Remaining = remaining
	return true, info
}
