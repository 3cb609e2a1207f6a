package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shoprec/internal/middleware"
	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) response(args mock.Arguments) (*models.RecommendationResponse, error) {
	if r := args.Get(0); r != nil {
		return r.(*models.RecommendationResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecommendationService) Personalized(ctx context.Context, userID uuid.UUID, mode recommender.Mode, limit int) (*models.RecommendationResponse, error) {
	return m.response(m.Called(ctx, userID, mode, limit))
}

func (m *MockRecommendationService) Popular(ctx context.Context, limit int) (*models.RecommendationResponse, error) {
	return m.response(m.Called(ctx, limit))
}

func (m *MockRecommendationService) Trending(ctx context.Context, limit int, timeframe string) (*models.RecommendationResponse, error) {
	return m.response(m.Called(ctx, limit, timeframe))
}

func (m *MockRecommendationService) Category(ctx context.Context, category, subcategory string, limit int) (*models.RecommendationResponse, error) {
	return m.response(m.Called(ctx, category, subcategory, limit))
}

func (m *MockRecommendationService) Similar(ctx context.Context, productID int64, limit int) (*models.RecommendationResponse, error) {
	return m.response(m.Called(ctx, productID, limit))
}

func (m *MockRecommendationService) Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*models.ProfileSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecommendationService) Stats(ctx context.Context) (*models.RecommendationStats, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*models.RecommendationStats), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecommendationService) RecordFeedback(ctx context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.RecommendationFeedback, error) {
	args := m.Called(ctx, userID, req)
	if f := args.Get(0); f != nil {
		return f.(*models.RecommendationFeedback), args.Error(1)
	}
	return nil, args.Error(1)
}

type staticToken uuid.UUID

func (s staticToken) ValidateToken(string) (uuid.UUID, error) {
	return uuid.UUID(s), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRouter(svc RecommendationService, userID uuid.UUID) *gin.Engine {
	h := NewRecommendationHandler(svc, testLogger())
	auth := middleware.Auth(staticToken(userID), testLogger())

	router := gin.New()
	v1 := router.Group("/api/v1/recommendations")
	v1.GET("/personalized", auth, h.Personalized)
	v1.GET("/similar/:productId", h.Similar)
	v1.GET("/trending", h.Trending)
	v1.GET("/category/:category", h.Category)
	v1.GET("/popular", h.Popular)
	v1.POST("/feedback", auth, h.Feedback)
	v1.GET("/stats", auth, h.Stats)
	v1.GET("/user-profile", auth, h.UserProfile)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestPersonalized(t *testing.T) {
	userID := uuid.New()

	t.Run("defaults", func(t *testing.T) {
		svc := new(MockRecommendationService)
		svc.On("Personalized", mock.Anything, userID, recommender.ModeHybrid, 20).
			Return(&models.RecommendationResponse{Algorithm: "hybrid", Source: models.SourceHybrid}, nil)

		w := do(setupRouter(svc, userID), http.MethodGet, "/api/v1/recommendations/personalized", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.RecommendationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.SourceHybrid, resp.Source)
		svc.AssertExpectations(t)
	})

	t.Run("explicit algorithm and limit", func(t *testing.T) {
		svc := new(MockRecommendationService)
		svc.On("Personalized", mock.Anything, userID, recommender.ModeCollaborative, 5).
			Return(&models.RecommendationResponse{}, nil)

		w := do(setupRouter(svc, userID), http.MethodGet, "/api/v1/recommendations/personalized?algorithm=collaborative&limit=5", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	invalid := []struct {
		name  string
		query string
		code  string
	}{
		{"limit zero", "?limit=0", "INVALID_LIMIT"},
		{"limit too high", "?limit=51", "INVALID_LIMIT"},
		{"limit not a number", "?limit=ten", "INVALID_LIMIT"},
		{"unknown algorithm", "?algorithm=random", "INVALID_ALGORITHM"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRecommendationService)
			w := do(setupRouter(svc, userID), http.MethodGet, "/api/v1/recommendations/personalized"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			svc.AssertNotCalled(t, "Personalized", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("service error", func(t *testing.T) {
		svc := new(MockRecommendationService)
		svc.On("Personalized", mock.Anything, userID, recommender.ModeHybrid, 20).Return(nil, errors.New("db down"))

		w := do(setupRouter(svc, userID), http.MethodGet, "/api/v1/recommendations/personalized", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	})

	t.Run("requires auth", func(t *testing.T) {
		router := setupRouter(new(MockRecommendationService), userID)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/personalized", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		setup  func(*MockRecommendationService)
		status int
		code   string
	}{
		{
			name: "default limit",
			path: "/api/v1/recommendations/similar/7",
			setup: func(m *MockRecommendationService) {
				m.On("Similar", mock.Anything, int64(7), 10).Return(&models.RecommendationResponse{}, nil)
			},
			status: http.StatusOK,
		},
		{
			name:   "limit above 20",
			path:   "/api/v1/recommendations/similar/7?limit=21",
			status: http.StatusBadRequest,
			code:   "INVALID_LIMIT",
		},
		{
			name:   "bad product id",
			path:   "/api/v1/recommendations/similar/abc",
			status: http.StatusBadRequest,
			code:   "INVALID_PRODUCT_ID",
		},
		{
			name: "unknown product",
			path: "/api/v1/recommendations/similar/99?limit=3",
			setup: func(m *MockRecommendationService) {
				m.On("Similar", mock.Anything, int64(99), 3).Return(nil, recommender.ErrProductNotFound)
			},
			status: http.StatusNotFound,
			code:   "PRODUCT_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRecommendationService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			w := do(setupRouter(svc, uuid.New()), http.MethodGet, tt.path, "")

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTrending(t *testing.T) {
	svc := new(MockRecommendationService)
	svc.On("Trending", mock.Anything, 20, "").Return(&models.RecommendationResponse{}, nil)
	svc.On("Trending", mock.Anything, 5, "30d").Return(&models.RecommendationResponse{}, nil)
	router := setupRouter(svc, uuid.New())

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/recommendations/trending", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/recommendations/trending?limit=5&timeframe=30d", "").Code)

	w := do(router, http.MethodGet, "/api/v1/recommendations/trending?timeframe=1y", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TIMEFRAME", errorCode(t, w))

	svc.AssertExpectations(t)
}

func TestCategoryAndPopular(t *testing.T) {
	svc := new(MockRecommendationService)
	svc.On("Category", mock.Anything, "Electronics", "Audio", 8).Return(&models.RecommendationResponse{}, nil)
	svc.On("Popular", mock.Anything, 20).Return(&models.RecommendationResponse{}, nil)
	router := setupRouter(svc, uuid.New())

	assert.Equal(t, http.StatusOK,
		do(router, http.MethodGet, "/api/v1/recommendations/category/Electronics?subcategory=Audio&limit=8", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/recommendations/popular", "").Code)

	svc.AssertExpectations(t)
}

func TestFeedback(t *testing.T) {
	userID := uuid.New()

	t.Run("recorded", func(t *testing.T) {
		svc := new(MockRecommendationService)
		req := models.FeedbackRequest{ProductID: 3, Feedback: models.FeedbackNegative, RecommendationType: models.SourceContent}
		svc.On("RecordFeedback", mock.Anything, userID, req).
			Return(&models.RecommendationFeedback{ID: uuid.New(), UserID: userID, ProductID: 3}, nil)

		w := do(setupRouter(svc, userID), http.MethodPost, "/api/v1/recommendations/feedback",
			`{"product_id": 3, "feedback": "negative", "recommendation_type": "content"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "Feedback recorded successfully")
		svc.AssertExpectations(t)
	})

	invalid := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"product_id":`, "INVALID_JSON"},
		{"missing feedback", `{"product_id": 3}`, "VALIDATION_FAILED"},
		{"unknown feedback", `{"product_id": 3, "feedback": "love"}`, "VALIDATION_FAILED"},
		{"non-positive product", `{"product_id": 0, "feedback": "neutral"}`, "VALIDATION_FAILED"},
		{"unknown source", `{"product_id": 3, "feedback": "neutral", "recommendation_type": "magic"}`, "VALIDATION_FAILED"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockRecommendationService)
			w := do(setupRouter(svc, userID), http.MethodPost, "/api/v1/recommendations/feedback", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
			svc.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestStatsAndProfile(t *testing.T) {
	userID := uuid.New()
	svc := new(MockRecommendationService)
	svc.On("Stats", mock.Anything).Return(&models.RecommendationStats{TotalProducts: 12}, nil)
	svc.On("Profile", mock.Anything, userID).Return(&models.ProfileSummary{UserID: userID, InteractionCount: 4}, nil)
	router := setupRouter(svc, userID)

	w := do(router, http.MethodGet, "/api/v1/recommendations/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_products":12`)

	w = do(router, http.MethodGet, "/api/v1/recommendations/user-profile", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var profile models.ProfileSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, 4, profile.InteractionCount)

	svc.AssertExpectations(t)
}
