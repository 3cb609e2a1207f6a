package recommender

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/shoprec/pkg/models"
)

type fakeCatalog struct {
	products    []models.Product
	productsErr error
	byIDsErr    error
}

func (c *fakeCatalog) ProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	if c.byIDsErr != nil {
		return nil, c.byIDsErr
	}
	index := indexProducts(c.products)
	var out []models.Product
	for _, id := range ids {
		if p, ok := index[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) Products(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	if c.productsErr != nil {
		return nil, c.productsErr
	}
	var out []models.Product
	for _, p := range c.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Subcategory != "" && p.Subcategory != filter.Subcategory {
			continue
		}
		if filter.InStockOnly && !p.InStock() {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeInteractions struct {
	histories map[uuid.UUID]*models.UserHistory
	err       error
}

func (f *fakeInteractions) UserHistory(_ context.Context, userID uuid.UUID) (*models.UserHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	if h, ok := f.histories[userID]; ok {
		return h, nil
	}
	return &models.UserHistory{UserID: userID}, nil
}

// MockPeerSource is a mock implementation of PeerSource
type MockPeerSource struct {
	mock.Mock
}

func (m *MockPeerSource) PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]PeerUser, error) {
	args := m.Called(ctx, userID, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PeerUser), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testProduct(id int64, category string, price, rating float64) models.Product {
	return models.Product{
		ID:            id,
		Name:          "Product",
		Category:      category,
		Price:         price,
		Rating:        rating,
		StockQuantity: 10,
	}
}

func interactions(userID uuid.UUID, kind models.InteractionType, productIDs ...int64) []models.Interaction {
	out := make([]models.Interaction, 0, len(productIDs))
	for i, id := range productIDs {
		out = append(out, models.Interaction{
			UserID:    userID,
			ProductID: id,
			Type:      kind,
			Timestamp: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}
	return out
}

func productIDs(recs []models.ScoredRecommendation) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.Product.ID
	}
	return ids
}
