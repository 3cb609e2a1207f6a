package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/recommender"
	"github.com/temcen/shoprec/pkg/models"
)

// Neo4jPeerStore keeps the interaction graph
// (:User)-[:INTERACTED {type, timestamp}]->(:Product) and answers the peer
// scan by walking it from the target products.
type Neo4jPeerStore struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewNeo4jPeerStore(driver neo4j.DriverWithContext, logger *logrus.Logger) *Neo4jPeerStore {
	return &Neo4jPeerStore{driver: driver, logger: logger}
}

const peerPopulationCypher = `
	MATCH (target:Product)<-[:INTERACTED]-(peer:User)
	WHERE target.product_id IN $product_ids AND peer.user_id <> $user_id
	WITH DISTINCT peer
	MATCH (peer)-[r:INTERACTED]->(p:Product)
	WITH peer, r, p ORDER BY r.timestamp, p.product_id
	RETURN peer.user_id AS user_id,
		collect({product_id: p.product_id, type: r.type, timestamp: r.timestamp}) AS interactions
	ORDER BY user_id`

func (s *Neo4jPeerStore) PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]recommender.PeerUser, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, peerPopulationCypher, map[string]interface{}{
			"product_ids": productIDs,
			"user_id":     userID.String(),
		})
		if err != nil {
			return nil, err
		}

		var peers []recommender.PeerUser
		for result.Next(ctx) {
			peer, err := decodePeerRecord(result.Record())
			if err != nil {
				s.logger.WithError(err).Warn("Skipping malformed peer record")
				continue
			}
			peers = append(peers, peer)
		}
		return peers, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan peer graph: %w", err)
	}

	peers, _ := result.([]recommender.PeerUser)
	return peers, nil
}

// The edge is keyed by type and timestamp so a redelivered event lands on the
// edge it already wrote.
const recordInteractionCypher = `
	MERGE (u:User {user_id: $user_id})
	MERGE (p:Product {product_id: $product_id})
	MERGE (u)-[:INTERACTED {type: $type, timestamp: $timestamp}]->(p)`

// RecordInteraction adds one interaction edge, creating the user and product nodes as needed.
func (s *Neo4jPeerStore) RecordInteraction(ctx context.Context, event models.InteractionEvent) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, recordInteractionCypher,
			map[string]interface{}{
				"user_id":    event.UserID.String(),
				"product_id": event.ProductID,
				"type":       string(event.Type),
				"timestamp":  event.Timestamp,
			})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to record interaction edge: %w", err)
	}
	return nil
}

func decodePeerRecord(record *neo4j.Record) (recommender.PeerUser, error) {
	rawID, ok := record.Get("user_id")
	if !ok {
		return recommender.PeerUser{}, fmt.Errorf("record has no user_id")
	}
	idStr, ok := rawID.(string)
	if !ok {
		return recommender.PeerUser{}, fmt.Errorf("user_id has type %T", rawID)
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return recommender.PeerUser{}, fmt.Errorf("invalid user_id %q: %w", idStr, err)
	}

	peer := recommender.PeerUser{UserID: userID}

	rawList, _ := record.Get("interactions")
	list, _ := rawList.([]interface{})
	for _, item := range list {
		fields, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		productID, ok := fields["product_id"].(int64)
		if !ok {
			continue
		}
		kind, _ := fields["type"].(string)

		peer.Interactions = append(peer.Interactions, models.Interaction{
			UserID:    userID,
			ProductID: productID,
			Type:      models.InteractionType(kind),
			Timestamp: graphTime(fields["timestamp"]),
		})
	}
	return peer, nil
}

func graphTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case int64:
		return time.UnixMilli(t).UTC()
	}
	return time.Time{}
}
