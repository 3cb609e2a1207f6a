package recommender

import (
	"github.com/temcen/shoprec/pkg/models"
)

// Blend merges the collaborative and content branches by product ID. A
// product found by both scores CollaborativeBlendWeight*v + ContentBlendWeight*c;
// a product found by one keeps only that branch's weighted contribution.
func Blend(collaborative, content []models.ScoredRecommendation, limit int, cfg Config) []models.ScoredRecommendation {
	merged := make(map[int64]*models.ScoredRecommendation, len(collaborative)+len(content))
	order := make([]int64, 0, len(collaborative)+len(content))

	add := func(rec models.ScoredRecommendation, weight float64, source models.Source) {
		if existing, ok := merged[rec.Product.ID]; ok {
			existing.Score += weight * rec.Score
			existing.Sources = append(existing.Sources, source)
			return
		}
		merged[rec.Product.ID] = &models.ScoredRecommendation{
			Product: rec.Product,
			Score:   weight * rec.Score,
			Source:  models.SourceHybrid,
			Sources: []models.Source{source},
		}
		order = append(order, rec.Product.ID)
	}

	for _, rec := range collaborative {
		add(rec, cfg.CollaborativeBlendWeight, models.SourceCollaborative)
	}
	for _, rec := range content {
		add(rec, cfg.ContentBlendWeight, models.SourceContent)
	}

	recs := make([]models.ScoredRecommendation, 0, len(order))
	for _, id := range order {
		rec := *merged[id]
		rec.Score = finite(rec.Score)
		recs = append(recs, rec)
	}

	sortRecommendations(recs)
	return truncate(recs, limit)
}
