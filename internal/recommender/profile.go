package recommender

import (
	"gonum.org/v1/gonum/stat"

	"github.com/temcen/shoprec/pkg/models"
)

// UserProfile is a weighted preference vector folded from a user's
// qualifying interactions. It is rebuilt on every call and never persisted.
type UserProfile struct {
	Categories    map[string]float64
	Subcategories map[string]float64
	Manufacturers map[string]float64
	PriceRange    models.PriceRange
	AvgRating     float64
	Keywords      map[string]int

	resolved int
}

func newUserProfile() *UserProfile {
	return &UserProfile{
		Categories:    make(map[string]float64),
		Subcategories: make(map[string]float64),
		Manufacturers: make(map[string]float64),
		Keywords:      make(map[string]int),
	}
}

// Empty reports whether no qualifying interaction resolved to a catalog product.
func (p *UserProfile) Empty() bool {
	return p == nil || p.resolved == 0
}

// Resolved is the number of qualifying interactions folded into the profile.
func (p *UserProfile) Resolved() int {
	if p == nil {
		return 0
	}
	return p.resolved
}

// BuildProfile folds history over the resolved product snapshots. Interactions
// whose product is missing from products are skipped.
func BuildProfile(history *models.UserHistory, products map[int64]models.Product, cfg Config) *UserProfile {
	profile := newUserProfile()
	if history == nil {
		return profile
	}

	var ratings []float64
	for _, interaction := range history.Interactions {
		if !interaction.Type.Qualifying() {
			continue
		}
		product, ok := products[interaction.ProductID]
		if !ok {
			continue
		}

		profile.Categories[product.Category]++
		profile.Subcategories[product.Subcategory]++
		profile.Manufacturers[product.Manufacturer]++

		if profile.resolved == 0 {
			profile.PriceRange = models.PriceRange{Min: product.Price, Max: product.Price}
		} else {
			profile.PriceRange.Min = min(profile.PriceRange.Min, product.Price)
			profile.PriceRange.Max = max(profile.PriceRange.Max, product.Price)
		}

		ratings = append(ratings, product.Rating)

		for _, token := range Tokenize(productText(product), cfg.MinTokenLength) {
			profile.Keywords[token]++
		}
		profile.resolved++
	}

	if profile.resolved == 0 {
		return profile
	}
	profile.AvgRating = stat.Mean(ratings, nil)

	for _, category := range history.Preferences.Categories {
		profile.Categories[category] += cfg.ExplicitPreferenceBonus
	}

	return profile
}

// QualifyingProductIDs returns the distinct products referenced by qualifying
// interactions, in first-seen order.
func QualifyingProductIDs(history *models.UserHistory) []int64 {
	if history == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for _, interaction := range history.Interactions {
		if !interaction.Type.Qualifying() {
			continue
		}
		if _, ok := seen[interaction.ProductID]; ok {
			continue
		}
		seen[interaction.ProductID] = struct{}{}
		ids = append(ids, interaction.ProductID)
	}
	return ids
}

// InteractedProductIDs returns every product the user touched, of any kind.
func InteractedProductIDs(history *models.UserHistory) map[int64]struct{} {
	ids := make(map[int64]struct{})
	if history == nil {
		return ids
	}
	for _, interaction := range history.Interactions {
		ids[interaction.ProductID] = struct{}{}
	}
	return ids
}

func indexProducts(products []models.Product) map[int64]models.Product {
	index := make(map[int64]models.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}
