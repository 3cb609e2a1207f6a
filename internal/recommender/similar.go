package recommender

import (
	"math"

	"github.com/temcen/shoprec/pkg/models"
)

// ProductSimilarity compares two products on category, manufacturer, price
// and rating. Identical products score 1.2.
func ProductSimilarity(a, b models.Product) float64 {
	var score float64
	if a.Category != "" && a.Category == b.Category {
		score += 0.4
		if a.Subcategory != "" && a.Subcategory == b.Subcategory {
			score += 0.2
		}
	}
	if a.Manufacturer != "" && a.Manufacturer == b.Manufacturer {
		score += 0.2
	}
	if maxPrice := math.Max(a.Price, b.Price); maxPrice > 0 {
		score += 0.2 * math.Max(0, 1-math.Abs(a.Price-b.Price)/maxPrice)
	}
	score += 0.2 * math.Max(0, 1-math.Abs(a.Rating-b.Rating)/5)

	return finite(score)
}

// RankSimilar returns in-stock products other than seed scoring above threshold.
func RankSimilar(seed models.Product, candidates []models.Product, limit int, threshold float64) []models.ScoredRecommendation {
	recs := make([]models.ScoredRecommendation, 0)
	for _, p := range candidates {
		if p.ID == seed.ID || !p.InStock() {
			continue
		}
		score := ProductSimilarity(seed, p)
		if score <= threshold {
			continue
		}
		recs = append(recs, models.ScoredRecommendation{
			Product: p,
			Score:   score,
			Source:  models.SourceSimilar,
			Sources: []models.Source{models.SourceSimilar},
		})
	}
	sortRecommendations(recs)
	return truncate(recs, limit)
}
