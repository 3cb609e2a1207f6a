package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/temcen/shoprec/internal/recommender"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

// BreakerPeerSource guards a PeerSource with a circuit breaker. While open,
// scans fail fast with gobreaker.ErrOpenState and the hybrid path serves
// content-only results.
type BreakerPeerSource struct {
	next   recommender.PeerSource
	cb     *gobreaker.CircuitBreaker[[]recommender.PeerUser]
	logger *logrus.Logger
}

func NewBreakerPeerSource(next recommender.PeerSource, settings BreakerSettings, logger *logrus.Logger) *BreakerPeerSource {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[[]recommender.PeerUser](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// Cancellation is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerPeerSource{next: next, cb: cb, logger: logger}
}

func (b *BreakerPeerSource) PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]recommender.PeerUser, error) {
	return b.cb.Execute(func() ([]recommender.PeerUser, error) {
		return b.next.PeerPopulation(ctx, userID, productIDs)
	})
}

func (b *BreakerPeerSource) State() gobreaker.State {
	return b.cb.State()
}
