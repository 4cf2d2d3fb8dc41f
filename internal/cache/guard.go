package cache

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/resilience"
)

// Guarded wraps backend in a circuit breaker so a Redis outage costs one
// fast failure per request instead of a network timeout. Misses do not count
// as failures.
func Guarded(backend Backend, cfg resilience.BreakerConfig) *GuardedBackend {
	cfg.IsFailure = func(err error) bool {
		return err != nil && !pkgredis.IsNilError(err)
	}
	return &GuardedBackend{
		backend: backend,
		breaker: resilience.NewCircuitBreaker("score-cache", cfg),
	}
}

type GuardedBackend struct {
	backend Backend
	breaker *resilience.CircuitBreaker
}

func (g *GuardedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := g.breaker.Execute(func() error {
		var err error
		value, err = g.backend.Get(ctx, key)
		return err
	})
	return value, err
}

func (g *GuardedBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return g.backend.Set(ctx, key, value, ttl)
	})
}

func (g *GuardedBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := g.breaker.Execute(func() error {
		var err error
		deleted, err = g.backend.FlushByPattern(ctx, pattern)
		return err
	})
	return deleted, err
}

// State reports the breaker state for health checks.
func (g *GuardedBackend) State() resilience.State {
	return g.breaker.State()
}
