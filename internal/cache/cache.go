// Package cache stores computed score tables in Redis keyed by corpus
// fingerprint, collapsing concurrent computations of the same corpus.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/redis"
)

const keyPrefix = "tfidf:"

// Backend is the key-value subset of pkg/redis.Client the cache uses. Get
// must return an error satisfying pkgredis.IsNilError on a miss.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// ScoreCache caches score tables by corpus fingerprint.
type ScoreCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a ScoreCache whose entries expire after ttl.
func New(backend Backend, ttl time.Duration) *ScoreCache {
	return &ScoreCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "score-cache"),
	}
}

// Get looks up the table for fingerprint. Backend and decode failures count
// as misses.
func (c *ScoreCache) Get(ctx context.Context, fingerprint string) (tfidf.ScoreTable, bool) {
	key := buildKey(fingerprint)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var table tfidf.ScoreTable
	if err := json.Unmarshal(data, &table); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key, "rows", len(table))
	return table, true
}

// Set stores table for fingerprint. Failures are logged and otherwise ignored.
func (c *ScoreCache) Set(ctx context.Context, fingerprint string, table tfidf.ScoreTable) {
	key := buildKey(fingerprint)
	data, err := json.Marshal(table)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached table or runs computeFn once per
// fingerprint, however many callers are waiting on it. The bool reports a
// cache hit.
func (c *ScoreCache) GetOrCompute(
	ctx context.Context,
	fingerprint string,
	computeFn func() (tfidf.ScoreTable, error),
) (tfidf.ScoreTable, bool, error) {
	if table, ok := c.Get(ctx, fingerprint); ok {
		return table, true, nil
	}
	val, err, _ := c.group.Do(buildKey(fingerprint), func() (any, error) {
		table, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, fingerprint, table)
		return table, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(tfidf.ScoreTable), false, nil
}

// Invalidate drops every cached table.
func (c *ScoreCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns the hit and miss counts.
func (c *ScoreCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(fingerprint string) string {
	return keyPrefix + fingerprint
}
