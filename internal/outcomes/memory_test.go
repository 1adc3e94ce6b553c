package outcomes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monitorss/internal/config"
)

func TestMemoryStore_ListByFeed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []*Outcome{
		{FeedID: "f1", DestinationID: "d1", Status: StatusSent, Delivered: true, Timestamp: base},
		{FeedID: "f1", DestinationID: "d1", Status: StatusFailed, ErrorCode: ErrorCodeThirdPartyInternal, Timestamp: base.Add(time.Hour)},
		{FeedID: "f2", DestinationID: "d2", Status: StatusSent, Delivered: true, Timestamp: base.Add(2 * time.Hour)},
		{FeedID: "f1", DestinationID: "d3", Status: StatusFilteredOut, Comment: CommentBlockedByFilters, Timestamp: base.Add(3 * time.Hour)},
	}
	for _, o := range rows {
		require.NoError(t, s.Record(ctx, o))
		assert.NotEmpty(t, o.ID)
	}

	got, err := s.ListByFeed(ctx, "f1", base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StatusFilteredOut, got[0].Status)
	assert.Equal(t, StatusFailed, got[1].Status)

	got, err = s.ListByFeed(ctx, "missing", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, s.All(), 4)
}

func TestMemoryStore_DefaultsTimestamp(t *testing.T) {
	s := NewMemoryStore()
	o := &Outcome{FeedID: "f"}

	require.NoError(t, s.Record(context.Background(), o))

	assert.False(t, o.Timestamp.IsZero())
}

type failingStore struct {
	calls int
}

func (f *failingStore) Record(context.Context, *Outcome) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingStore) ListByFeed(context.Context, string, time.Time) ([]Outcome, error) {
	f.calls++
	return nil, errors.New("db down")
}

func TestCircuitBreakerStore(t *testing.T) {
	inner := &failingStore{}
	s := NewCircuitBreakerStore(inner, "outcomes-test", config.CircuitBreakerConfig{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Minute,
	})
	ctx := context.Background()

	require.Error(t, s.Record(ctx, &Outcome{}))
	require.Error(t, s.Record(ctx, &Outcome{}))

	err := s.Record(ctx, &Outcome{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, 2, inner.calls)
}

func TestCircuitBreakerStore_Disabled(t *testing.T) {
	inner := NewMemoryStore()
	s := NewCircuitBreakerStore(inner, "outcomes-disabled", config.CircuitBreakerConfig{})

	assert.Same(t, inner, s)
}
