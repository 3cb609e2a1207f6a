package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temcen/shoprec/internal/recommender"
)

const (
	PeerSourceNeo4j    = "neo4j"
	PeerSourcePostgres = "postgres"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  struct {
		UserInteractions       string `mapstructure:"user_interactions"`
		RecommendationFeedback string `mapstructure:"recommendation_feedback"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig carries the scoring constants. They are product
// decisions, so every one of them can be overridden.
type RecommendationConfig struct {
	Weights                  ContentWeightConfig `mapstructure:"weights"`
	RatingBoostDivisor       float64             `mapstructure:"rating_boost_divisor"`
	ViewBoostDivisor         float64             `mapstructure:"view_boost_divisor"`
	ExplicitPreferenceBonus  float64             `mapstructure:"explicit_preference_bonus"`
	MinTokenLength           int                 `mapstructure:"min_token_length"`
	MinSharedProducts        int                 `mapstructure:"min_shared_products"`
	MinPeerInteractions      int                 `mapstructure:"min_peer_interactions"`
	MaxPeers                 int                 `mapstructure:"max_peers"`
	LikeWeight               float64             `mapstructure:"like_weight"`
	PurchaseWeight           float64             `mapstructure:"purchase_weight"`
	CollaborativeBlendWeight float64             `mapstructure:"collaborative_blend_weight"`
	ContentBlendWeight       float64             `mapstructure:"content_blend_weight"`
	OverfetchRatio           float64             `mapstructure:"overfetch_ratio"`
	SimilarityThreshold      float64             `mapstructure:"similarity_threshold"`
	PeerSource               string              `mapstructure:"peer_source"`
	CacheTTL                 time.Duration       `mapstructure:"cache_ttl"`
	Breaker                  BreakerConfig       `mapstructure:"breaker"`
}

type ContentWeightConfig struct {
	Category     float64 `mapstructure:"category"`
	Subcategory  float64 `mapstructure:"subcategory"`
	Manufacturer float64 `mapstructure:"manufacturer"`
	Price        float64 `mapstructure:"price"`
	Rating       float64 `mapstructure:"rating"`
	Keyword      float64 `mapstructure:"keyword"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Interval    time.Duration `mapstructure:"interval"`
}

type MonitoringConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	MetricsPath       string        `mapstructure:"metrics_path"`
	PoolStatsInterval time.Duration `mapstructure:"pool_stats_interval"`
}

type SecurityConfig struct {
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Recommendation.PeerSource {
	case PeerSourceNeo4j, PeerSourcePostgres:
	default:
		return fmt.Errorf("recommendation.peer_source must be %q or %q, got %q",
			PeerSourceNeo4j, PeerSourcePostgres, c.Recommendation.PeerSource)
	}
	if c.Recommendation.OverfetchRatio <= 0 {
		return fmt.Errorf("recommendation.overfetch_ratio must be positive")
	}
	if c.Recommendation.MaxPeers <= 0 {
		return fmt.Errorf("recommendation.max_peers must be positive")
	}
	return nil
}

// Recommender converts the recommendation section into engine settings.
func (c *Config) Recommender() recommender.Config {
	r := c.Recommendation
	return recommender.Config{
		Content: recommender.ContentWeights{
			Category:     r.Weights.Category,
			Subcategory:  r.Weights.Subcategory,
			Manufacturer: r.Weights.Manufacturer,
			Price:        r.Weights.Price,
			Rating:       r.Weights.Rating,
			Keyword:      r.Weights.Keyword,
		},
		RatingBoostDivisor:       r.RatingBoostDivisor,
		ViewBoostDivisor:         r.ViewBoostDivisor,
		ExplicitPreferenceBonus:  r.ExplicitPreferenceBonus,
		MinTokenLength:           r.MinTokenLength,
		MinSharedProducts:        r.MinSharedProducts,
		MinPeerInteractions:      r.MinPeerInteractions,
		MaxPeers:                 r.MaxPeers,
		LikeWeight:               r.LikeWeight,
		PurchaseWeight:           r.PurchaseWeight,
		CollaborativeBlendWeight: r.CollaborativeBlendWeight,
		ContentBlendWeight:       r.ContentBlendWeight,
		OverfetchRatio:           r.OverfetchRatio,
		SimilarityThreshold:      r.SimilarityThreshold,
	}
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.url", "postgres://localhost:5432/shop")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Neo4j defaults
	viper.SetDefault("neo4j.url", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "shoprec")
	viper.SetDefault("kafka.topics.user_interactions", "user-interactions")
	viper.SetDefault("kafka.topics.recommendation_feedback", "recommendation-feedback")

	viper.SetDefault("auth.jwt_secret", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Scoring defaults
	defaults := recommender.DefaultConfig()
	viper.SetDefault("recommendation.weights.category", defaults.Content.Category)
	viper.SetDefault("recommendation.weights.subcategory", defaults.Content.Subcategory)
	viper.SetDefault("recommendation.weights.manufacturer", defaults.Content.Manufacturer)
	viper.SetDefault("recommendation.weights.price", defaults.Content.Price)
	viper.SetDefault("recommendation.weights.rating", defaults.Content.Rating)
	viper.SetDefault("recommendation.weights.keyword", defaults.Content.Keyword)
	viper.SetDefault("recommendation.rating_boost_divisor", defaults.RatingBoostDivisor)
	viper.SetDefault("recommendation.view_boost_divisor", defaults.ViewBoostDivisor)
	viper.SetDefault("recommendation.explicit_preference_bonus", defaults.ExplicitPreferenceBonus)
	viper.SetDefault("recommendation.min_token_length", defaults.MinTokenLength)
	viper.SetDefault("recommendation.min_shared_products", defaults.MinSharedProducts)
	viper.SetDefault("recommendation.min_peer_interactions", defaults.MinPeerInteractions)
	viper.SetDefault("recommendation.max_peers", defaults.MaxPeers)
	viper.SetDefault("recommendation.like_weight", defaults.LikeWeight)
	viper.SetDefault("recommendation.purchase_weight", defaults.PurchaseWeight)
	viper.SetDefault("recommendation.collaborative_blend_weight", defaults.CollaborativeBlendWeight)
	viper.SetDefault("recommendation.content_blend_weight", defaults.ContentBlendWeight)
	viper.SetDefault("recommendation.overfetch_ratio", defaults.OverfetchRatio)
	viper.SetDefault("recommendation.similarity_threshold", defaults.SimilarityThreshold)
	viper.SetDefault("recommendation.peer_source", PeerSourceNeo4j)
	viper.SetDefault("recommendation.cache_ttl", "15m")

	// Circuit breaker around the peer scan
	viper.SetDefault("recommendation.breaker.max_failures", 5)
	viper.SetDefault("recommendation.breaker.timeout", "30s")
	viper.SetDefault("recommendation.breaker.interval", "1m")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.pool_stats_interval", "30s")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
	viper.SetDefault("security.rate_limit.enabled", true)
	viper.SetDefault("security.rate_limit.requests", 600)
	viper.SetDefault("security.rate_limit.window", "1m")
}
