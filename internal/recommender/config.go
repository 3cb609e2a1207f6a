package recommender

// ContentWeights are the term weights of the content similarity formula.
type ContentWeights struct {
	Category     float64
	Subcategory  float64
	Manufacturer float64
	Price        float64
	Rating       float64
	Keyword      float64
}

type Config struct {
	Content ContentWeights

	// Quality and popularity boosts: score *= (1 + rating/RatingBoostDivisor) * (1 + views/ViewBoostDivisor).
	RatingBoostDivisor float64
	ViewBoostDivisor   float64

	// ExplicitPreferenceBonus is added to each stated preferred category. It must
	// exceed the per-interaction unit so stated preferences dominate.
	ExplicitPreferenceBonus float64
	// MinTokenLength is exclusive: only tokens longer than this are kept.
	MinTokenLength int

	MinSharedProducts   int
	MinPeerInteractions int
	MaxPeers            int

	LikeWeight     float64
	PurchaseWeight float64

	CollaborativeBlendWeight float64
	ContentBlendWeight       float64
	OverfetchRatio           float64

	// SimilarityThreshold is the minimum item-to-item score kept by Similar.
	SimilarityThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Content: ContentWeights{
			Category:     0.30,
			Subcategory:  0.20,
			Manufacturer: 0.15,
			Price:        0.15,
			Rating:       0.10,
			Keyword:      0.10,
		},
		RatingBoostDivisor:       10,
		ViewBoostDivisor:         10000,
		ExplicitPreferenceBonus:  2,
		MinTokenLength:           3,
		MinSharedProducts:        2,
		MinPeerInteractions:      5,
		MaxPeers:                 10,
		LikeWeight:               1,
		PurchaseWeight:           2,
		CollaborativeBlendWeight: 0.6,
		ContentBlendWeight:       0.4,
		OverfetchRatio:           0.6,
		SimilarityThreshold:      0.3,
	}
}
