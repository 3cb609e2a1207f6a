package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

// PostgresPeerStore scans user_interactions for users who touched any of the
// target products, relying on the product_id index.
type PostgresPeerStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewPostgresPeerStore(db Querier, logger *logrus.Logger) *PostgresPeerStore {
	return &PostgresPeerStore{db: db, logger: logger}
}

func (s *PostgresPeerStore) PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]recommender.PeerUser, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT ui.user_id, ui.product_id, ui.interaction_type, ui.timestamp
		FROM user_interactions ui
		WHERE ui.user_id IN (
			SELECT DISTINCT user_id FROM user_interactions
			WHERE product_id = ANY($1) AND user_id <> $2
		)
		ORDER BY ui.user_id, ui.timestamp, ui.product_id`, productIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query peer population: %w", err)
	}
	defer rows.Close()

	var (
		peers []recommender.PeerUser
		index = make(map[uuid.UUID]int)
	)
	for rows.Next() {
		var (
			i    models.Interaction
			kind string
		)
		if err := rows.Scan(&i.UserID, &i.ProductID, &kind, &i.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan peer interaction: %w", err)
		}
		i.Type = models.InteractionType(kind)

		pos, ok := index[i.UserID]
		if !ok {
			pos = len(peers)
			index[i.UserID] = pos
			peers = append(peers, recommender.PeerUser{UserID: i.UserID})
		}
		peers[pos].Interactions = append(peers[pos].Interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate peer population: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"peers":   len(peers),
	}).Debug("Scanned peer population")

	return peers, nil
}
