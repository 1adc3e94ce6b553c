package seen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"monitorss/internal/config"
	"monitorss/pkg/circuitbreaker"
	"monitorss/pkg/clock"
)

// Repository is a key store with set-if-absent semantics.
type Repository interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Count(ctx context.Context, prefix string) (int, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}
	return ok, nil
}

func (r *RedisRepository) Count(ctx context.Context, prefix string) (int, error) {
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	count := 0
	for iter.Next(ctx) {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return count, nil
}

// MemoryRepository keeps keys in process. A zero ttl never expires.
type MemoryRepository struct {
	mu      sync.Mutex
	clock   clock.Clock
	expires map[string]time.Time
}

func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	if clk == nil {
		clk = clock.Real()
	}
	return &MemoryRepository{clock: clk, expires: make(map[string]time.Time)}
}

func (r *MemoryRepository) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if exp, ok := r.expires[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	r.expires[key] = exp
	return true, nil
}

func (r *MemoryRepository) Count(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	count := 0
	for key, exp := range r.expires {
		if !exp.IsZero() && !now.Before(exp) {
			delete(r.expires, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			count++
		}
	}
	return count, nil
}

// CircuitBreakerRepository stops calling a failing Repository until it recovers.
type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) Repository {
	if !cfg.Enabled {
		return repo
	}
	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(circuitbreaker.FromConfig("redis-seen", cfg)),
	}
}

func (r *CircuitBreakerRepository) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	ok, err := circuitbreaker.Execute(ctx, r.cb, func() (bool, error) {
		return r.repo.SetNX(ctx, key, value, ttl)
	})
	return ok, r.wrap(err)
}

func (r *CircuitBreakerRepository) Count(ctx context.Context, prefix string) (int, error) {
	n, err := circuitbreaker.Execute(ctx, r.cb, func() (int, error) {
		return r.repo.Count(ctx, prefix)
	})
	return n, r.wrap(err)
}

func (r *CircuitBreakerRepository) wrap(err error) error {
	if err != nil && circuitbreaker.IsUnavailable(err) {
		return fmt.Errorf("circuit breaker is open for %s: %w", r.cb.Name(), err)
	}
	return err
}
