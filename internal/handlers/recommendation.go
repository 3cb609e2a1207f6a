package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/middleware"
	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

const (
	defaultLimit        = 20
	maxLimit            = 50
	defaultSimilarLimit = 10
	maxSimilarLimit     = 20
)

// RecommendationService is what the HTTP layer needs from services.RecommendationService.
type RecommendationService interface {
	Personalized(ctx context.Context, userID uuid.UUID, mode recommender.Mode, limit int) (*models.RecommendationResponse, error)
	Popular(ctx context.Context, limit int) (*models.RecommendationResponse, error)
	Trending(ctx context.Context, limit int, timeframe string) (*models.RecommendationResponse, error)
	Category(ctx context.Context, category, subcategory string, limit int) (*models.RecommendationResponse, error)
	Similar(ctx context.Context, productID int64, limit int) (*models.RecommendationResponse, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.ProfileSummary, error)
	Stats(ctx context.Context) (*models.RecommendationStats, error)
	RecordFeedback(ctx context.Context, userID uuid.UUID, req models.FeedbackRequest) (*models.RecommendationFeedback, error)
}

type RecommendationHandler struct {
	service   RecommendationService
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRecommendationHandler(service RecommendationService, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *RecommendationHandler) Personalized(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c, defaultLimit, maxLimit)
	if !ok {
		return
	}

	mode, err := recommender.ParseMode(c.Query("algorithm"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ALGORITHM", "Algorithm must be hybrid, content or collaborative")
		return
	}

	resp, err := h.service.Personalized(c.Request.Context(), userID, mode, limit)
	if err != nil {
		h.fail(c, err, "Failed to generate recommendations", logrus.Fields{"user_id": userID, "algorithm": mode})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) Similar(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Product ID must be a positive integer")
		return
	}
	limit, ok := parseLimit(c, defaultSimilarLimit, maxSimilarLimit)
	if !ok {
		return
	}

	resp, err := h.service.Similar(c.Request.Context(), productID, limit)
	if err != nil {
		h.fail(c, err, "Failed to find similar products", logrus.Fields{"product_id": productID})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) Trending(c *gin.Context) {
	limit, ok := parseLimit(c, defaultLimit, maxLimit)
	if !ok {
		return
	}

	timeframe := c.Query("timeframe")
	if _, err := recommender.TimeframeDuration(timeframe); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_TIMEFRAME", "Timeframe must be 1d, 7d or 30d")
		return
	}

	resp, err := h.service.Trending(c.Request.Context(), limit, timeframe)
	if err != nil {
		h.fail(c, err, "Failed to get trending products", logrus.Fields{"timeframe": timeframe})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) Category(c *gin.Context) {
	category := c.Param("category")
	limit, ok := parseLimit(c, defaultLimit, maxLimit)
	if !ok {
		return
	}

	resp, err := h.service.Category(c.Request.Context(), category, c.Query("subcategory"), limit)
	if err != nil {
		h.fail(c, err, "Failed to get category recommendations", logrus.Fields{"category": category})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) Popular(c *gin.Context) {
	limit, ok := parseLimit(c, defaultLimit, maxLimit)
	if !ok {
		return
	}

	resp, err := h.service.Popular(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "Failed to get popular products", nil)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendationHandler) Feedback(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var request models.FeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Warn("Invalid JSON in feedback request")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_JSON",
				"message": "Invalid JSON format",
				"details": err.Error(),
			},
		})
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "Feedback validation failed",
				"details": err.Error(),
			},
		})
		return
	}

	feedback, err := h.service.RecordFeedback(c.Request.Context(), userID, request)
	if err != nil {
		h.fail(c, err, "Failed to record feedback", logrus.Fields{"user_id": userID, "product_id": request.ProductID})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Feedback recorded successfully",
		"feedback": feedback,
	})
}

func (h *RecommendationHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to get recommendation stats", nil)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *RecommendationHandler) UserProfile(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "Failed to get recommendation profile", logrus.Fields{"user_id": userID})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *RecommendationHandler) requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "MISSING_USER", "Authenticated user is required")
	}
	return userID, ok
}

// fail maps domain errors to statuses and logs everything else as a server error.
func (h *RecommendationHandler) fail(c *gin.Context, err error, message string, fields logrus.Fields) {
	switch {
	case errors.Is(err, recommender.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, recommender.ErrInvalidTimeframe):
		respondError(c, http.StatusBadRequest, "INVALID_TIMEFRAME", "Timeframe must be 1d, 7d or 30d")
	case errors.Is(err, recommender.ErrUnknownMode):
		respondError(c, http.StatusBadRequest, "INVALID_ALGORITHM", "Algorithm must be hybrid, content or collaborative")
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		h.logger.WithError(err).WithFields(fields).Error(message)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
	}
}

// parseLimit reads ?limit, writing a 400 when it is not an integer in [1, max].
func parseLimit(c *gin.Context, def, max int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		respondError(c, http.StatusBadRequest, "INVALID_LIMIT", "Limit must be between 1 and "+strconv.Itoa(max))
		return 0, false
	}
	return limit, true
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
