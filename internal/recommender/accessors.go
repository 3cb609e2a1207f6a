package recommender

import (
	"context"

	"github.com/google/uuid"

	"github.com/temcen/shoprec/pkg/models"
)

type ProductFilter struct {
	Category    string
	Subcategory string
	InStockOnly bool
}

// Catalog is a read-only view over the product collection. Unknown IDs are
// omitted from results, never reported as errors.
type Catalog interface {
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	Products(ctx context.Context, filter ProductFilter) ([]models.Product, error)
}

// InteractionSource returns a user's recorded interactions and stated
// preferences. A user without interactions yields an empty history.
type InteractionSource interface {
	UserHistory(ctx context.Context, userID uuid.UUID) (*models.UserHistory, error)
}

// PeerUser is one member of the population scanned for peers.
type PeerUser struct {
	UserID       uuid.UUID
	Interactions []models.Interaction
}

// PeerSource returns users who interacted with at least one of productIDs,
// with their full interaction lists. The requesting user may be included.
type PeerSource interface {
	PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]PeerUser, error)
}
