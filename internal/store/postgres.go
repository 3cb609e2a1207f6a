package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

// Querier is the subset of pgxpool.Pool the stores use. pgxmock satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const productColumns = `SELECT product_id, product_name, COALESCE(description, ''), category,
	COALESCE(subcategory, ''), COALESCE(manufacturer, ''), price, rating, quantity_in_stock,
	views, likes, purchases, updated_at`

// ProductStore reads the product catalog from PostgreSQL.
type ProductStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewProductStore(db Querier, logger *logrus.Logger) *ProductStore {
	return &ProductStore{db: db, logger: logger}
}

// ProductsByIDs returns the products that still exist; unknown IDs are dropped.
func (s *ProductStore) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, productColumns+` FROM products WHERE product_id = ANY($1) ORDER BY product_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by id: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *ProductStore) Products(ctx context.Context, filter recommender.ProductFilter) ([]models.Product, error) {
	query := productColumns + ` FROM products WHERE 1=1`
	var args []interface{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Subcategory != "" {
		args = append(args, filter.Subcategory)
		query += fmt.Sprintf(" AND subcategory = $%d", len(args))
	}
	if filter.InStockOnly {
		query += " AND quantity_in_stock > 0"
	}
	query += " ORDER BY product_id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// Counts returns catalog and interaction totals for the stats endpoint.
func (s *ProductStore) Counts(ctx context.Context) (products, users, interactions int64, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(DISTINCT user_id) FROM user_interactions),
			(SELECT COUNT(*) FROM user_interactions)`).Scan(&products, &users, &interactions)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return products, users, interactions, nil
}

func scanProducts(rows pgx.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category,
			&p.Subcategory, &p.Manufacturer, &p.Price, &p.Rating, &p.StockQuantity,
			&p.Analytics.Views, &p.Analytics.Likes, &p.Analytics.Purchases, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// InteractionStore reads user histories and stated preferences.
type InteractionStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewInteractionStore(db Querier, logger *logrus.Logger) *InteractionStore {
	return &InteractionStore{db: db, logger: logger}
}

func (s *InteractionStore) UserHistory(ctx context.Context, userID uuid.UUID) (*models.UserHistory, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, interaction_type, timestamp, COALESCE(search_query, '')
		FROM user_interactions
		WHERE user_id = $1
		ORDER BY timestamp, product_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	history := &models.UserHistory{UserID: userID}
	for rows.Next() {
		var (
			i    models.Interaction
			kind string
		)
		if err := rows.Scan(&i.ProductID, &kind, &i.Timestamp, &i.Metadata.SearchQuery); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		i.UserID = userID
		i.Type = models.InteractionType(kind)
		if !i.Type.Valid() {
			s.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"type":    kind,
			}).Warn("Skipping interaction with unknown type")
			continue
		}
		history.Interactions = append(history.Interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interactions: %w", err)
	}

	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	history.Preferences = prefs

	return history, nil
}

func (s *InteractionStore) preferences(ctx context.Context, userID uuid.UUID) (models.UserPreferences, error) {
	var (
		prefs    models.UserPreferences
		hasRange bool
		priceMin float64
		priceMax float64
	)
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(categories, '{}'), price_min IS NOT NULL AND price_max IS NOT NULL,
			COALESCE(price_min, 0), COALESCE(price_max, 0)
		FROM user_preferences
		WHERE user_id = $1`, userID).Scan(&prefs.Categories, &hasRange, &priceMin, &priceMax)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserPreferences{}, nil
	}
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("failed to query preferences: %w", err)
	}
	if hasRange {
		prefs.PriceRange = &models.PriceRange{Min: priceMin, Max: priceMax}
	}
	return prefs, nil
}
