package outcomes

import (
	"context"
	"fmt"
	"time"

	"monitorss/internal/config"
	"monitorss/pkg/circuitbreaker"
)

// CircuitBreakerStore stops calling a failing store until it recovers.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, name string, cfg config.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return store
	}
	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(circuitbreaker.FromConfig(name, cfg)),
	}
}

func (s *CircuitBreakerStore) Record(ctx context.Context, o *Outcome) error {
	_, err := circuitbreaker.Execute(ctx, s.cb, func() (struct{}, error) {
		return struct{}{}, s.store.Record(ctx, o)
	})
	return s.wrap(err)
}

func (s *CircuitBreakerStore) ListByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	out, err := circuitbreaker.Execute(ctx, s.cb, func() ([]Outcome, error) {
		return s.store.ListByFeed(ctx, feedID, since)
	})
	return out, s.wrap(err)
}

func (s *CircuitBreakerStore) wrap(err error) error {
	if err != nil && circuitbreaker.IsUnavailable(err) {
		return fmt.Errorf("circuit breaker is open for %s: %w", s.cb.Name(), err)
	}
	return err
}
