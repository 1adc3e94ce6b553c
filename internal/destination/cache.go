package destination

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"monitorss/internal/config"
	"monitorss/internal/logger"
	"monitorss/pkg/circuitbreaker"
	"monitorss/pkg/metrics"
	"monitorss/pkg/tracing"
)

// Cache serves lookups from memory and refreshes them from a Source.
type Cache struct {
	*MemoryDirectory

	source Source
	reload config.ReloadConfig
	logger logger.Logger
}

func NewCache(source Source, reload config.ReloadConfig, log logger.Logger) *Cache {
	return &Cache{
		MemoryDirectory: NewMemoryDirectory(),
		source:          source,
		reload:          reload,
		logger:          log,
	}
}

// Reload replaces the cached destinations with the current contents of the
// source. Without skipJitter it first waits a random delay bounded by the
// configured jitter so replicas do not hit the store together.
func (c *Cache) Reload(ctx context.Context, skipJitter ...bool) error {
	ctx, span := tracing.Start(ctx, "destination.reload")
	defer span.End()

	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]
	if err := c.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	c.logger.DebugwCtx(ctx, "Loading destinations")
	dests, err := c.source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load destinations: %w", err)
	}

	rejected := c.Replace(dests)
	for _, r := range rejected {
		c.logger.WarnwCtx(ctx, "Skipping invalid destination",
			"destination_id", r.ID,
			"error", r.Err,
		)
	}
	loaded := len(dests) - len(rejected)
	metrics.SetActiveDestinations(loaded)
	c.logger.InfowCtx(ctx, "Successfully reloaded destinations",
		"destinations_count", loaded,
		"rejected_count", len(rejected),
	)
	return nil
}

func (c *Cache) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || c.reload.JitterMaxMilliseconds <= 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(c.reload.JitterMaxMilliseconds)) * time.Millisecond
	c.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reloads immediately and then on every interval until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	if err := c.Reload(ctx, true); err != nil {
		c.logger.ErrorwCtx(ctx, "Failed to reload destinations", "error", err)
	}

	if c.reload.IntervalSeconds <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(time.Duration(c.reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Reload(ctx); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to reload destinations", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CircuitBreakerSource stops calling a failing Source until it recovers.
type CircuitBreakerSource struct {
	source Source
	cb     *circuitbreaker.Wrapper
}

func NewCircuitBreakerSource(source Source, cfg config.CircuitBreakerConfig) Source {
	if !cfg.Enabled {
		return source
	}
	return &CircuitBreakerSource{
		source: source,
		cb:     circuitbreaker.NewWrapper(circuitbreaker.FromConfig("destination-source", cfg)),
	}
}

func (s *CircuitBreakerSource) LoadAll(ctx context.Context) ([]*Destination, error) {
	dests, err := circuitbreaker.Execute(ctx, s.cb, func() ([]*Destination, error) {
		return s.source.LoadAll(ctx)
	})
	if err != nil && circuitbreaker.IsUnavailable(err) {
		return nil, fmt.Errorf("circuit breaker is open for %s: %w", s.cb.Name(), err)
	}
	return dests, err
}
