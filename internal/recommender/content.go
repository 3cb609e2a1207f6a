package recommender

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/temcen/shoprec/pkg/models"
)

// ContentScore rates how well product matches profile. The result is finite
// and non-negative; an empty profile scores 0 for every product.
func ContentScore(profile *UserProfile, product models.Product, cfg Config) float64 {
	var score float64
	if !profile.Empty() {
		w := cfg.Content
		score += w.Category * normalizedWeight(profile.Categories, product.Category)
		score += w.Subcategory * normalizedWeight(profile.Subcategories, product.Subcategory)
		score += w.Manufacturer * normalizedWeight(profile.Manufacturers, product.Manufacturer)
		score += w.Price * priceFit(profile.PriceRange, product.Price)
		if profile.AvgRating > 0 {
			score += w.Rating * math.Max(0, 1-math.Abs(product.Rating-profile.AvgRating)/5)
		}
		score += w.Keyword * keywordOverlap(profile.Keywords, product, cfg.MinTokenLength)
	}

	score *= 1 + safeDiv(product.Rating, cfg.RatingBoostDivisor)
	score *= 1 + safeDiv(float64(product.Analytics.Views), cfg.ViewBoostDivisor)

	return finite(score)
}

// RankContent scores every in-stock candidate not in exclude and returns the
// best limit of them. limit <= 0 returns all.
func RankContent(
	profile *UserProfile,
	candidates []models.Product,
	exclude map[int64]struct{},
	limit int,
	cfg Config,
) []models.ScoredRecommendation {
	recs := make([]models.ScoredRecommendation, 0, len(candidates))
	for _, product := range candidates {
		if !product.InStock() {
			continue
		}
		if _, seen := exclude[product.ID]; seen {
			continue
		}
		recs = append(recs, models.ScoredRecommendation{
			Product: product,
			Score:   ContentScore(profile, product, cfg),
			Source:  models.SourceContent,
			Sources: []models.Source{models.SourceContent},
		})
	}

	sortRecommendations(recs)
	return truncate(recs, limit)
}

func normalizedWeight(weights map[string]float64, key string) float64 {
	if len(weights) == 0 {
		return 0
	}
	values := make([]float64, 0, len(weights))
	for _, v := range weights {
		values = append(values, v)
	}
	return safeDiv(weights[key], floats.Max(values))
}

func priceFit(r models.PriceRange, price float64) float64 {
	mid := (r.Min + r.Max) / 2
	denom := math.Max(r.Max-r.Min, price)
	if denom <= 0 {
		return 0
	}
	return math.Max(0, 1-math.Abs(price-mid)/denom)
}

func keywordOverlap(keywords map[string]int, product models.Product, minLen int) float64 {
	if len(keywords) == 0 {
		return 0
	}
	var total int
	for _, count := range keywords {
		total += count
	}

	var matched int
	for token := range tokenSet(product, minLen) {
		matched += keywords[token]
	}
	return safeDiv(float64(matched), float64(total))
}
