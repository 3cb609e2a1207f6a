package recommender

import (
	"sort"

	"github.com/temcen/shoprec/pkg/models"
)

// AccumulateCollaborative sums peer similarity, weighted by interaction
// strength, over every like or purchase of a product outside exclude.
// Stock is not considered here.
func AccumulateCollaborative(exclude map[int64]struct{}, peers []PeerCandidate, cfg Config) map[int64]float64 {
	scores := make(map[int64]float64)
	for _, peer := range peers {
		for _, interaction := range peer.Interactions {
			if !interaction.Type.Positive() {
				continue
			}
			if _, seen := exclude[interaction.ProductID]; seen {
				continue
			}

			weight := cfg.LikeWeight
			if interaction.Type == models.InteractionPurchase {
				weight = cfg.PurchaseWeight
			}
			scores[interaction.ProductID] += peer.Similarity * weight
		}
	}
	return scores
}

// ProductScore is an accumulated collaborative score for one product ID.
type ProductScore struct {
	ID    int64
	Score float64
}

// RankProductIDs orders accumulated scores descending with product ID as tie-break.
func RankProductIDs(scores map[int64]float64) []ProductScore {
	ranked := make([]ProductScore, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, ProductScore{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// ResolveCollaborative attaches snapshots to ranked IDs, dropping products
// that are missing or out of stock, and keeps the first limit.
func ResolveCollaborative(ranked []ProductScore, products []models.Product, limit int) []models.ScoredRecommendation {
	index := indexProducts(products)

	recs := make([]models.ScoredRecommendation, 0, len(ranked))
	for _, ps := range ranked {
		product, ok := index[ps.ID]
		if !ok || !product.InStock() {
			continue
		}
		recs = append(recs, models.ScoredRecommendation{
			Product: product,
			Score:   ps.Score,
			Source:  models.SourceCollaborative,
			Sources: []models.Source{models.SourceCollaborative},
		})
	}
	return truncate(recs, limit)
}
