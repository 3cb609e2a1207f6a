package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), testLogger())
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) result(args mock.Arguments) (*recommender.Result, error) {
	if r := args.Get(0); r != nil {
		return r.(*recommender.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Recommend(ctx context.Context, userID uuid.UUID, mode recommender.Mode, n int) (*recommender.Result, error) {
	return m.result(m.Called(ctx, userID, mode, n))
}

func (m *MockEngine) Popular(ctx context.Context, n int) (*recommender.Result, error) {
	return m.result(m.Called(ctx, n))
}

func (m *MockEngine) Trending(ctx context.Context, n int, timeframe string) (*recommender.Result, error) {
	return m.result(m.Called(ctx, n, timeframe))
}

func (m *MockEngine) Category(ctx context.Context, category, subcategory string, n int) (*recommender.Result, error) {
	return m.result(m.Called(ctx, category, subcategory, n))
}

func (m *MockEngine) Similar(ctx context.Context, productID int64, n int) (*recommender.Result, error) {
	return m.result(m.Called(ctx, productID, n))
}

func (m *MockEngine) Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*models.ProfileSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishFeedback(ctx context.Context, feedback *models.RecommendationFeedback) error {
	return m.Called(ctx, feedback).Error(0)
}

type fakeCatalogStats struct {
	products                     []models.Product
	nProducts, nUsers, nInteract int64
	err                          error
}

func (f *fakeCatalogStats) Counts(context.Context) (int64, int64, int64, error) {
	return f.nProducts, f.nUsers, f.nInteract, f.err
}

func (f *fakeCatalogStats) Products(context.Context, recommender.ProductFilter) ([]models.Product, error) {
	return f.products, f.err
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*models.RecommendationResponse
	getErr      error
	setErr      error
	invalidated []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.RecommendationResponse)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*models.RecommendationResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	resp, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	cp := *resp
	return &cp, true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, resp *models.RecommendationResponse, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	cp := *resp
	c.entries[key] = &cp
	return nil
}

func (c *fakeCache) InvalidateUser(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}
