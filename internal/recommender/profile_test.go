package recommender

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shoprec/pkg/models"
)

func TestBuildProfile(t *testing.T) {
	cfg := DefaultConfig()
	userID := uuid.New()

	phone := models.Product{ID: 1, Name: "Wireless Headphones", Description: "Noise cancelling wireless",
		Category: "Electronics", Subcategory: "Audio", Manufacturer: "Acme", Price: 100, Rating: 4}
	laptop := models.Product{ID: 2, Name: "Laptop", Category: "Electronics", Subcategory: "Computers",
		Manufacturer: "Beta", Price: 300, Rating: 5}
	book := models.Product{ID: 3, Name: "Novel", Category: "Books", Price: 10, Rating: 3}
	catalog := indexProducts([]models.Product{phone, laptop, book})

	t.Run("only qualifying interactions count", func(t *testing.T) {
		var history models.UserHistory
		history.Interactions = append(history.Interactions, interactions(userID, models.InteractionView, 1)...)
		history.Interactions = append(history.Interactions, interactions(userID, models.InteractionLike, 2)...)
		history.Interactions = append(history.Interactions, interactions(userID, models.InteractionSearch, 3)...)
		history.Interactions = append(history.Interactions, interactions(userID, models.InteractionCartAdd, 3)...)
		history.Interactions = append(history.Interactions, interactions(userID, models.InteractionPurchase, 99)...)

		profile := BuildProfile(&history, catalog, cfg)

		require.False(t, profile.Empty())
		assert.Equal(t, 2, profile.Resolved())
		assert.Equal(t, map[string]float64{"Electronics": 2}, profile.Categories)
		assert.Equal(t, map[string]float64{"Audio": 1, "Computers": 1}, profile.Subcategories)
		assert.Equal(t, map[string]float64{"Acme": 1, "Beta": 1}, profile.Manufacturers)
		assert.Equal(t, models.PriceRange{Min: 100, Max: 300}, profile.PriceRange)
		assert.InDelta(t, 4.5, profile.AvgRating, 1e-9)
		assert.Equal(t, map[string]int{
			"wireless":   2,
			"headphones": 1,
			"noise":      1,
			"cancelling": 1,
			"laptop":     1,
		}, profile.Keywords)
	})

	t.Run("repeated interactions add weight each time", func(t *testing.T) {
		history := models.UserHistory{Interactions: interactions(userID, models.InteractionView, 3, 3, 3)}

		profile := BuildProfile(&history, catalog, cfg)

		assert.Equal(t, 3.0, profile.Categories["Books"])
		assert.Equal(t, 3, profile.Keywords["novel"])
	})

	t.Run("explicit preference outweighs a single interaction", func(t *testing.T) {
		history := models.UserHistory{
			Interactions: interactions(userID, models.InteractionView, 1),
			Preferences:  models.UserPreferences{Categories: []string{"Books"}},
		}

		profile := BuildProfile(&history, catalog, cfg)

		assert.Equal(t, 1.0, profile.Categories["Electronics"])
		assert.Equal(t, cfg.ExplicitPreferenceBonus, profile.Categories["Books"])
		assert.Greater(t, profile.Categories["Books"], profile.Categories["Electronics"])
	})

	t.Run("no qualifying interactions yields the empty profile", func(t *testing.T) {
		history := models.UserHistory{
			Interactions: interactions(userID, models.InteractionSearch, 1, 2),
			Preferences:  models.UserPreferences{Categories: []string{"Books"}},
		}

		profile := BuildProfile(&history, catalog, cfg)

		assert.True(t, profile.Empty())
		assert.Empty(t, profile.Categories)
	})

	t.Run("dangling references are skipped", func(t *testing.T) {
		history := models.UserHistory{Interactions: interactions(userID, models.InteractionLike, 404, 405)}

		profile := BuildProfile(&history, catalog, cfg)

		assert.True(t, profile.Empty())
		assert.Zero(t, profile.AvgRating)
	})

	t.Run("nil history", func(t *testing.T) {
		assert.True(t, BuildProfile(nil, catalog, cfg).Empty())
	})
}

func TestQualifyingProductIDs(t *testing.T) {
	userID := uuid.New()
	history := &models.UserHistory{}
	history.Interactions = append(history.Interactions, interactions(userID, models.InteractionLike, 5, 3)...)
	history.Interactions = append(history.Interactions, interactions(userID, models.InteractionSearch, 7)...)
	history.Interactions = append(history.Interactions, interactions(userID, models.InteractionView, 5, 9)...)

	assert.Equal(t, []int64{5, 3, 9}, QualifyingProductIDs(history))
	assert.Equal(t, map[int64]struct{}{3: {}, 5: {}, 7: {}, 9: {}}, InteractedProductIDs(history))
	assert.Nil(t, QualifyingProductIDs(nil))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"short words dropped", "The big USB cable", []string{"cable"}},
		{"punctuation splits", "noise-cancelling, wireless!", []string{"noise", "cancelling", "wireless"}},
		{"unicode is folded", "Ｃａｍｅｒａ Kamera", []string{"camera", "kamera"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input, 3)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
