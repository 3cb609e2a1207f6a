package models

import (
	"time"

	"github.com/google/uuid"
)

// Source tags which path produced a recommendation.
type Source string

const (
	SourceContent       Source = "content"
	SourceCollaborative Source = "collaborative"
	SourceHybrid        Source = "hybrid"
	SourceTrending      Source = "trending"
	SourceCategory      Source = "category"
	SourcePopular       Source = "popular"
	SourceSimilar       Source = "similar"
)

func (s Source) Valid() bool {
	switch s {
	case SourceContent, SourceCollaborative, SourceHybrid, SourceTrending,
		SourceCategory, SourcePopular, SourceSimilar:
		return true
	}
	return false
}

// ScoredRecommendation pairs a product snapshot with a ranking key. Only the
// relative order of scores within one list is meaningful.
type ScoredRecommendation struct {
	Product Product  `json:"product"`
	Score   float64  `json:"score"`
	Source  Source   `json:"recommendation_type"`
	Sources []Source `json:"sources,omitempty"`
}

type RecommendationResponse struct {
	UserID               *uuid.UUID             `json:"user_id,omitempty"`
	Algorithm            string                 `json:"algorithm"`
	Source               Source                 `json:"source"`
	Recommendations      []ScoredRecommendation `json:"recommendations"`
	Fallbacks            []string               `json:"fallbacks,omitempty"`
	TotalRecommendations int                    `json:"total_recommendations"`
	GeneratedAt          time.Time              `json:"generated_at"`
	CacheHit             bool                   `json:"cache_hit"`
}

type FeedbackValue string

const (
	FeedbackPositive FeedbackValue = "positive"
	FeedbackNegative FeedbackValue = "negative"
	FeedbackNeutral  FeedbackValue = "neutral"
)

type FeedbackRequest struct {
	ProductID          int64         `json:"product_id" validate:"required,gt=0"`
	Feedback           FeedbackValue `json:"feedback" validate:"required,oneof=positive negative neutral"`
	RecommendationType Source        `json:"recommendation_type,omitempty" validate:"omitempty,oneof=content collaborative hybrid trending category popular similar"`
}

type RecommendationFeedback struct {
	ID                 uuid.UUID     `json:"id"`
	UserID             uuid.UUID     `json:"user_id"`
	ProductID          int64         `json:"product_id"`
	Feedback           FeedbackValue `json:"feedback"`
	RecommendationType Source        `json:"recommendation_type,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
}

type WeightedName struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ProfileSummary is the user-facing view of a computed preference profile.
type ProfileSummary struct {
	UserID           uuid.UUID       `json:"user_id"`
	TopCategories    []WeightedName  `json:"top_categories"`
	TopManufacturers []WeightedName  `json:"top_manufacturers"`
	PriceRange       *PriceRange     `json:"price_range,omitempty"`
	AvgRating        float64         `json:"avg_rating"`
	InteractionCount int             `json:"interaction_count"`
	LastActivity     *time.Time      `json:"last_activity,omitempty"`
	Preferences      UserPreferences `json:"preferences"`
}

type CategoryStats struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	AvgRating  float64 `json:"avg_rating"`
	TotalViews int64   `json:"total_views"`
}

type RecommendationStats struct {
	TotalProducts     int             `json:"total_products"`
	TotalUsers        int             `json:"total_users"`
	TotalInteractions int             `json:"total_interactions"`
	TopCategories     []CategoryStats `json:"top_categories"`
	Timestamp         time.Time       `json:"timestamp"`
}
