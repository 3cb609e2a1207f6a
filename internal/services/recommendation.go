package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

const topStatsCategories = 10

// RecommendationEngine is the subset of recommender.Engine the service drives.
type RecommendationEngine interface {
	Recommend(ctx context.Context, userID uuid.UUID, mode recommender.Mode, n int) (*recommender.Result, error)
	Popular(ctx context.Context, n int) (*recommender.Result, error)
	Trending(ctx context.Context, n int, timeframe string) (*recommender.Result, error)
	Category(ctx context.Context, category, subcategory string, n int) (*recommender.Result, error)
	Similar(ctx context.Context, productID int64, n int) (*recommender.Result, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error)
}

// CatalogStats reads the aggregates behind the stats endpoint.
type CatalogStats interface {
	Counts(ctx context.Context) (products, users, interactions int64, err error)
	Products(ctx context.Context, filter recommender.ProductFilter) ([]models.Product, error)
}

type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, feedback *models.RecommendationFeedback) error
}

type RecommendationService struct {
	engine    RecommendationEngine
	catalog   CatalogStats
	cache     RecommendationCache
	publisher FeedbackPublisher
	metrics   *Metrics
	cacheTTL  time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewRecommendationService wires the engine to its caching and publishing
// collaborators. cache and publisher may be nil.
func NewRecommendationService(
	engine RecommendationEngine,
	catalog CatalogStats,
	cache RecommendationCache,
	publisher FeedbackPublisher,
	metrics *Metrics,
	cacheTTL time.Duration,
	logger *logrus.Logger,
) *RecommendationService {
	return &RecommendationService{
		engine:    engine,
		catalog:   catalog,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Personalized serves a user's list from cache when possible and otherwise
// runs the requested pipeline. Cache failures are logged and ignored.
func (s *RecommendationService) Personalized(ctx context.Context, userID uuid.UUID, mode recommender.Mode, limit int) (*models.RecommendationResponse, error) {
	key := cacheKey(userID, string(mode), limit)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.WithError(err).WithField("key", key).Warn("Recommendation cache read failed")
			s.metrics.CacheLookups.WithLabelValues("error").Inc()
		case ok:
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			cached.CacheHit = true
			return cached, nil
		default:
			s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	result, err := s.engine.Recommend(ctx, userID, mode, limit)
	s.metrics.Latency.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	s.observe(string(mode), result)
	resp := s.response(&userID, string(mode), result)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Recommendation cache write failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"algorithm": mode,
		"source":    result.Source,
		"count":     len(result.Items),
		"fallbacks": len(result.Fallbacks),
	}).Info("Served personalized recommendations")

	return resp, nil
}

func (s *RecommendationService) Popular(ctx context.Context, limit int) (*models.RecommendationResponse, error) {
	return s.run("popular", func() (*recommender.Result, error) {
		return s.engine.Popular(ctx, limit)
	})
}

func (s *RecommendationService) Trending(ctx context.Context, limit int, timeframe string) (*models.RecommendationResponse, error) {
	return s.run("trending", func() (*recommender.Result, error) {
		return s.engine.Trending(ctx, limit, timeframe)
	})
}

func (s *RecommendationService) Category(ctx context.Context, category, subcategory string, limit int) (*models.RecommendationResponse, error) {
	return s.run("category", func() (*recommender.Result, error) {
		return s.engine.Category(ctx, category, subcategory, limit)
	})
}

func (s *RecommendationService) Similar(ctx context.Context, productID int64, limit int) (*models.RecommendationResponse, error) {
	return s.run("similar", func() (*recommender.Result, error) {
		return s.engine.Similar(ctx, productID, limit)
	})
}

func (s *RecommendationService) Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error) {
	return s.engine.Profile(ctx, userID)
}

func (s *RecommendationService) run(algorithm string, fn func() (*recommender.Result, error)) (*models.RecommendationResponse, error) {
	start := time.Now()
	result, err := fn()
	s.metrics.Latency.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.observe(algorithm, result)
	return s.response(nil, algorithm, result), nil
}

func (s *RecommendationService) observe(mode string, result *recommender.Result) {
	s.metrics.Requests.WithLabelValues(mode, string(result.Source)).Inc()
	for _, f := range result.Fallbacks {
		s.metrics.Fallbacks.WithLabelValues(string(f.From), string(f.To), string(f.Reason)).Inc()
	}
}

func (s *RecommendationService) response(userID *uuid.UUID, algorithm string, result *recommender.Result) *models.RecommendationResponse {
	items := result.Items
	if items == nil {
		items = []models.ScoredRecommendation{}
	}

	var fallbacks []string
	for _, f := range result.Fallbacks {
		fallbacks = append(fallbacks, f.String())
	}

	return &models.RecommendationResponse{
		UserID:               userID,
		Algorithm:            algorithm,
		Source:               result.Source,
		Recommendations:      items,
		Fallbacks:            fallbacks,
		TotalRecommendations: len(items),
		GeneratedAt:          s.now().UTC(),
	}
}

// Stats reports catalog totals and the largest categories by product count.
func (s *RecommendationService) Stats(ctx context.Context) (*models.RecommendationStats, error) {
	products, users, interactions, err := s.catalog.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog: %w", err)
	}

	all, err := s.catalog.Products(ctx, recommender.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	return &models.RecommendationStats{
		TotalProducts:     int(products),
		TotalUsers:        int(users),
		TotalInteractions: int(interactions),
		TopCategories:     categoryStats(all, topStatsCategories),
		Timestamp:         s.now().UTC(),
	}, nil
}

func categoryStats(products []models.Product, limit int) []models.CategoryStats {
	ratings := make(map[string][]float64)
	views := make(map[string]int64)
	for _, p := range products {
		if p.Category == "" {
			continue
		}
		ratings[p.Category] = append(ratings[p.Category], p.Rating)
		views[p.Category] += p.Analytics.Views
	}

	out := make([]models.CategoryStats, 0, len(ratings))
	for category, rs := range ratings {
		out = append(out, models.CategoryStats{
			Category:   category,
			Count:      len(rs),
			AvgRating:  stat.Mean(rs, nil),
			TotalViews: views[category],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecordFeedback stores nothing locally; the event is published for
// downstream consumers and logged.
func (s *RecommendationService) RecordFeedback(ctx context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.RecommendationFeedback, error) {
	feedback := &models.RecommendationFeedback{
		ID:                 uuid.New(),
		UserID:             userID,
		ProductID:          req.ProductID,
		Feedback:           req.Feedback,
		RecommendationType: req.RecommendationType,
		Timestamp:          s.now().UTC(),
	}

	if s.publisher != nil {
		if err := s.publisher.PublishFeedback(ctx, feedback); err != nil {
			return nil, fmt.Errorf("failed to publish feedback: %w", err)
		}
	}

	s.metrics.Feedback.WithLabelValues(string(req.Feedback)).Inc()
	s.logger.WithFields(logrus.Fields{
		"feedback_id":         feedback.ID,
		"user_id":             userID,
		"product_id":          req.ProductID,
		"feedback":            req.Feedback,
		"recommendation_type": req.RecommendationType,
	}).Info("Recorded recommendation feedback")

	return feedback, nil
}

// InvalidateUser drops cached lists for userID after new activity.
func (s *RecommendationService) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateUser(ctx, userID)
}
