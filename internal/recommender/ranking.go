package recommender

import (
	"math"
	"sort"

	"github.com/temcen/shoprec/pkg/models"
)

// sortRecommendations orders by score descending, then product ID ascending,
// so equal inputs always produce the same ranking.
func sortRecommendations(recs []models.ScoredRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Product.ID < recs[j].Product.ID
	})
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func safeDiv(num, denom float64) float64 {
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	return num / denom
}

// finite maps NaN, infinities and negatives to 0.
func finite(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	return score
}

func overfetch(n int, ratio float64) int {
	return int(math.Ceil(float64(n) * ratio))
}
