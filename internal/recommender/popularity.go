package recommender

import (
	"sort"
	"time"

	"github.com/temcen/shoprec/pkg/models"
)

// RankPopular orders in-stock products by rating, views and purchases, all
// descending, with product ID as the final tie-break.
func RankPopular(products []models.Product, limit int) []models.ScoredRecommendation {
	return rankByPopularity(products, limit, models.SourcePopular)
}

// RankCategory applies popularity ordering to an already filtered category slice.
func RankCategory(products []models.Product, limit int) []models.ScoredRecommendation {
	return rankByPopularity(products, limit, models.SourceCategory)
}

func rankByPopularity(products []models.Product, limit int, source models.Source) []models.ScoredRecommendation {
	inStock := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.InStock() {
			inStock = append(inStock, p)
		}
	}

	sort.SliceStable(inStock, func(i, j int) bool {
		a, b := inStock[i], inStock[j]
		switch {
		case a.Rating != b.Rating:
			return a.Rating > b.Rating
		case a.Analytics.Views != b.Analytics.Views:
			return a.Analytics.Views > b.Analytics.Views
		case a.Analytics.Purchases != b.Analytics.Purchases:
			return a.Analytics.Purchases > b.Analytics.Purchases
		}
		return a.ID < b.ID
	})

	inStock = truncate(inStock, limit)
	recs := make([]models.ScoredRecommendation, 0, len(inStock))
	for _, p := range inStock {
		recs = append(recs, models.ScoredRecommendation{
			Product: p,
			Score:   finite(p.Rating + float64(p.Analytics.Views)/1000),
			Source:  source,
			Sources: []models.Source{source},
		})
	}
	return recs
}

// Timeframes accepted by Trending.
var timeframes = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

const defaultTimeframe = "7d"

// TimeframeDuration resolves a trending window; an empty value means 7d.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	d, ok := timeframes[timeframe]
	if !ok {
		return 0, ErrInvalidTimeframe
	}
	return d, nil
}

// TrendingScore weights recent engagement and rating.
func TrendingScore(p models.Product) float64 {
	a := p.Analytics
	return finite(0.3*float64(a.Views) + 0.4*float64(a.Likes) + 0.3*float64(a.Purchases) + 10*p.Rating)
}

// RankTrending scores in-stock products updated at or after since.
func RankTrending(products []models.Product, since time.Time, limit int) []models.ScoredRecommendation {
	recs := make([]models.ScoredRecommendation, 0, len(products))
	for _, p := range products {
		if !p.InStock() || p.UpdatedAt.Before(since) {
			continue
		}
		recs = append(recs, models.ScoredRecommendation{
			Product: p,
			Score:   TrendingScore(p),
			Source:  models.SourceTrending,
			Sources: []models.Source{models.SourceTrending},
		})
	}
	sortRecommendations(recs)
	return truncate(recs, limit)
}
