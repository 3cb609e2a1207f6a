package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/temcen/shoprec/internal/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "secret"
	cfg.Recommendation.CacheTTL = time.Minute
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 10, Window: time.Minute}

	t.Run("without redis", func(t *testing.T) {
		svc := New(cfg, testLogger(), Deps{Engine: new(MockEngine), Registry: prometheus.NewRegistry()})

		assert.NotNil(t, svc.Auth)
		assert.NotNil(t, svc.Health)
		assert.NotNil(t, svc.Recommendation)
		assert.Nil(t, svc.RateLimit)
		assert.Equal(t, time.Minute, svc.Recommendation.cacheTTL)
	})

	t.Run("with redis", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
		defer client.Close()

		svc := New(cfg, testLogger(), Deps{Engine: new(MockEngine), Registry: prometheus.NewRegistry(), Redis: client})
		if assert.NotNil(t, svc.RateLimit) {
			assert.Equal(t, 10, svc.RateLimit.limit)
		}
	})
}
