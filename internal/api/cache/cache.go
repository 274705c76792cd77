// Package cache stores rendered MP list pages in Redis. The dataset never
// changes while the process runs, so entries only expire by TTL; keys are
// namespaced by the dataset fingerprint so a redeploy with different records
// never reads stale pages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/fuzzy"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/resilience"
)

const keyPrefix = "mps:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type PageCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	breaker   *resilience.CircuitBreaker
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

// New creates a cache whose keys live under the given dataset namespace.
// Store calls go through a circuit breaker so a failing Redis costs one
// error per request only until the breaker opens.
func New(store Store, cfg config.RedisConfig, namespace string) *PageCache {
	return &PageCache{
		store:     store,
		ttl:       cfg.CacheTTL,
		namespace: namespace,
		breaker:   resilience.NewCircuitBreaker("page-cache", resilience.CircuitBreakerConfig{}),
		logger:    slog.Default().With("component", "page-cache"),
	}
}

func (c *PageCache) Get(ctx context.Context, q mp.Query, page, limit int) (mp.Page, bool) {
	key := c.buildKey(q, page, limit)
	var data []byte
	err := c.breaker.Execute(func() error {
		b, err := c.store.Get(ctx, key)
		if err != nil && !pkgredis.IsNilError(err) {
			return err
		}
		data = b
		return nil
	})
	if err != nil || data == nil {
		if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return mp.Page{}, false
	}
	var result mp.Page
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return mp.Page{}, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return result, true
}

func (c *PageCache) Set(ctx context.Context, q mp.Query, page, limit int, result mp.Page) {
	key := c.buildKey(q, page, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached page or computes it once per key across
// concurrent callers. Compute errors are returned and never cached.
func (c *PageCache) GetOrCompute(
	ctx context.Context,
	q mp.Query,
	page, limit int,
	computeFn func() (mp.Page, error),
) (mp.Page, bool, error) {
	if result, ok := c.Get(ctx, q, page, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(q, page, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, q, page, limit, result)
		return result, nil
	})
	if err != nil {
		return mp.Page{}, false, err
	}
	return val.(mp.Page), false, nil
}

// Invalidate removes every cached page, across all dataset namespaces.
func (c *PageCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *PageCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *PageCache) buildKey(q mp.Query, page, limit int) string {
	raw := fmt.Sprintf("%s:page=%d:limit=%d", normalizeQuery(q), page, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.namespace, hash[:16])
}

// normalizeQuery maps queries that resolve identically to the same string:
// exact filters and search compare folded text, fuzzy compares processed text.
// A fuzzy term that processes to nothing still filters, so presence is kept.
func normalizeQuery(q mp.Query) string {
	fold := cases.Fold()
	parts := []string{
		"party=" + fold.String(q.Party),
		"constituency=" + fold.String(q.Constituency),
		"search=" + fold.String(q.Search),
	}
	if q.Fuzzy != "" {
		parts = append(parts, "fuzzy="+fuzzy.Process(q.Fuzzy))
	}
	return strings.Join(parts, "|")
}
