package recommender

import (
	"sort"

	"github.com/google/uuid"

	"github.com/temcen/shoprec/pkg/models"
)

const summaryTopN = 5

// Summarize renders a computed profile for display.
func Summarize(userID uuid.UUID, history *models.UserHistory, profile *UserProfile) *models.ProfileSummary {
	summary := &models.ProfileSummary{
		UserID:           userID,
		TopCategories:    []models.WeightedName{},
		TopManufacturers: []models.WeightedName{},
	}
	if history != nil {
		summary.InteractionCount = len(history.Interactions)
		summary.Preferences = history.Preferences
		for _, interaction := range history.Interactions {
			ts := interaction.Timestamp
			if summary.LastActivity == nil || ts.After(*summary.LastActivity) {
				summary.LastActivity = &ts
			}
		}
	}

	if profile.Empty() {
		return summary
	}

	summary.TopCategories = topWeighted(profile.Categories, summaryTopN)
	summary.TopManufacturers = topWeighted(profile.Manufacturers, summaryTopN)
	priceRange := profile.PriceRange
	summary.PriceRange = &priceRange
	summary.AvgRating = profile.AvgRating

	return summary
}

func topWeighted(weights map[string]float64, n int) []models.WeightedName {
	out := make([]models.WeightedName, 0, len(weights))
	for name, weight := range weights {
		if name == "" {
			continue
		}
		out = append(out, models.WeightedName{Name: name, Weight: weight})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return truncate(out, n)
}
