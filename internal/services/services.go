package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/config"
)

type Services struct {
	Auth           *AuthService
	Health         *HealthService
	Recommendation *RecommendationService
	RateLimit      *RateLimitService
	Metrics        *Metrics
}

// Deps are the collaborators built by the application before services.
type Deps struct {
	Engine    RecommendationEngine
	Catalog   CatalogStats
	Cache     RecommendationCache
	Publisher FeedbackPublisher
	Checks    []HealthCheck
	Registry  prometheus.Registerer
	Redis     *redis.Client
}

func New(cfg *config.Config, logger *logrus.Logger, deps Deps) *Services {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metrics := NewMetrics(reg, logger)

	var rateLimit *RateLimitService
	if rl := cfg.Security.RateLimit; rl.Enabled && deps.Redis != nil {
		rateLimit = NewRateLimitService(deps.Redis, rl.Requests, rl.Window, logger)
	}

	return &Services{
		Auth:      NewAuthService(cfg.Auth.JWTSecret, logger),
		Health:    NewHealthService(deps.Checks, metrics, logger),
		Metrics:   metrics,
		RateLimit: rateLimit,
		Recommendation: NewRecommendationService(
			deps.Engine, deps.Catalog, deps.Cache, deps.Publisher,
			metrics, cfg.Recommendation.CacheTTL, logger,
		),
	}
}
