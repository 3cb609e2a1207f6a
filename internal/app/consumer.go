package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/shoprec/internal/messaging"
	"github.com/temcen/shoprec/pkg/models"
)

type cacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

type interactionRecorder interface {
	RecordInteraction(ctx context.Context, event models.InteractionEvent) error
}

// interactionHandler invalidates the user's cached lists and, when the graph
// backs peer discovery, then mirrors the interaction into it. recorder may be
// nil. Retried deliveries reach the graph only once invalidation succeeds.
func interactionHandler(cache cacheInvalidator, recorder interactionRecorder, logger *logrus.Logger) messaging.InteractionHandler {
	return func(ctx context.Context, event models.InteractionEvent) error {
		if err := cache.InvalidateUser(ctx, event.UserID); err != nil {
			return fmt.Errorf("failed to invalidate recommendations: %w", err)
		}

		if recorder != nil {
			if err := recorder.RecordInteraction(ctx, event); err != nil {
				return fmt.Errorf("failed to record interaction in graph: %w", err)
			}
		}

		logger.WithFields(logrus.Fields{
			"user_id":    event.UserID,
			"product_id": event.ProductID,
			"type":       event.Type,
		}).Debug("Processed interaction event")
		return nil
	}
}
