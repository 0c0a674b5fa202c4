// Package cache keeps rendered search results in Redis. Keys cover the
// tokenized query and the presentation options; the whole cache is dropped
// whenever a new index is swapped in.
package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minise/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/resilience"
)

const keyPrefix = "minise:search:"

// Store is the subset of the Redis client the cache uses. Get reports a
// missing key with an error satisfying redis.IsNilError.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store      Store
	ttl        time.Duration
	breaker    *resilience.Breaker
	group      singleflight.Group
	generation atomic.Uint64
	metrics    *metrics.Metrics
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewBreaker("redis", resilience.BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     10 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns the cached result for query and opts. Store failures count as
// misses.
func (c *QueryCache) Get(ctx context.Context, query string, opts executor.Options) (*executor.SearchResult, bool) {
	key := c.buildKey(query, opts)
	var data []byte
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil || data == nil {
		if err != nil {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache entry undecodable", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, opts executor.Options, result *executor.SearchResult) {
	key := c.buildKey(query, opts)
	data, err := msgpack.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes and stores it.
// Concurrent misses for the same key share one computation. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	opts executor.Options,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, opts); ok {
		return result, true, nil
	}
	gen := c.generation.Load()
	val, err, _ := c.group.Do(c.buildKey(query, opts), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if c.generation.Load() == gen {
			c.Set(ctx, query, opts, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result. Results computed against the
// previous index while this runs are not stored.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.generation.Add(1)
	var deleted int64
	err := c.breaker.Do(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query string, opts executor.Options) string {
	raw := fmt.Sprintf("%d|%s|n=%d|sn=%d|sl=%d",
		c.generation.Load(), normalizeQuery(query), opts.Num, opts.SnippetNum, opts.SnippetLen)
	sum := blake2b.Sum256([]byte(raw))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// normalizeQuery collapses separator runs; token case and order are kept
// since both affect results.
func normalizeQuery(query string) string {
	return strings.Join(tokenizer.Fields(query), " ")
}
