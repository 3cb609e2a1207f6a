package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shoprec/internal/recommender"
)

// MockPeerSource is a mock implementation of recommender.PeerSource
type MockPeerSource struct {
	mock.Mock
}

func (m *MockPeerSource) PeerPopulation(ctx context.Context, userID uuid.UUID, productIDs []int64) ([]recommender.PeerUser, error) {
	args := m.Called(ctx, userID, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recommender.PeerUser), args.Error(1)
}

func TestBreakerPeerSource_PassesThrough(t *testing.T) {
	next := &MockPeerSource{}
	userID := uuid.New()
	want := []recommender.PeerUser{{UserID: uuid.New()}}
	next.On("PeerPopulation", mock.Anything, userID, []int64{1}).Return(want, nil)

	source := NewBreakerPeerSource(next, BreakerSettings{Name: "peers", MaxFailures: 2, Timeout: time.Minute}, testLogger())
	got, err := source.PeerPopulation(context.Background(), userID, []int64{1})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, gobreaker.StateClosed, source.State())
}

func TestBreakerPeerSource_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &MockPeerSource{}
	boom := errors.New("graph unavailable")
	next.On("PeerPopulation", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	source := NewBreakerPeerSource(next, BreakerSettings{Name: "peers", MaxFailures: 3, Timeout: time.Minute}, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := source.PeerPopulation(ctx, uuid.New(), []int64{1})
		assert.ErrorIs(t, err, boom)
	}

	_, err := source.PeerPopulation(ctx, uuid.New(), []int64{1})

	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, source.State())
	next.AssertNumberOfCalls(t, "PeerPopulation", 3)
}

func TestBreakerPeerSource_IgnoresCancellation(t *testing.T) {
	next := &MockPeerSource{}
	next.On("PeerPopulation", mock.Anything, mock.Anything, mock.Anything).Return(nil, context.Canceled)

	source := NewBreakerPeerSource(next, BreakerSettings{Name: "peers", MaxFailures: 1, Timeout: time.Minute}, testLogger())

	for i := 0; i < 3; i++ {
		_, err := source.PeerPopulation(context.Background(), uuid.New(), []int64{1})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, source.State())
}
