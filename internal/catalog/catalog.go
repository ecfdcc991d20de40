// Package catalog holds the process-wide symbol to trading-pair mapping.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"CoinDash/internal/logger"
	"CoinDash/internal/metrics"
)

// PairLister lists tradable pairs keyed by base asset.
type PairLister interface {
	ListTradingPairs(ctx context.Context, quote string) (map[string]string, error)
}

// Catalog caches the symbol mapping in memory and, when a Redis client is
// configured, mirrors it so other instances can start without hitting the exchange.
// It is safe for concurrent use.
type Catalog struct {
	lister PairLister
	quote  string
	rdb    *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu          sync.RWMutex
	pairs       map[string]string
	refreshedAt time.Time
}

// New creates an empty catalog. rdb may be nil. If ttl is 0 it defaults to 6 hours.
func New(lister PairLister, quote string, rdb *redis.Client, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Catalog{
		lister: lister,
		quote:  strings.ToUpper(quote),
		rdb:    rdb,
		ttl:    ttl,
		now:    time.Now,
		pairs:  map[string]string{},
	}
}

// Load fills the catalog at startup, preferring a fresh Redis mirror over the exchange.
func (c *Catalog) Load(ctx context.Context) error {
	if pairs, ok := c.readMirror(ctx); ok {
		c.set(pairs)
		logger.With("catalog").WithField("pairs", len(pairs)).Info("catalog loaded from redis")
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh re-reads the pairs from the exchange. On failure the current mapping is kept;
// an empty catalog falls back to the Redis mirror when one exists.
func (c *Catalog) Refresh(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObserveRefresh("catalog", start)

	pairs, err := c.lister.ListTradingPairs(ctx, c.quote)
	if err != nil {
		if c.Len() == 0 {
			if cached, ok := c.readMirror(ctx); ok {
				c.set(cached)
				logger.With("catalog").WithError(err).Warn("exchange unavailable, catalog restored from redis")
				return nil
			}
		}
		return fmt.Errorf("refresh catalog: %w", err)
	}

	c.set(pairs)
	c.writeMirror(ctx, pairs)
	logger.With("catalog").WithField("pairs", len(pairs)).Info("catalog refreshed")
	return nil
}

// Lookup returns the pair key for a base asset symbol.
func (c *Catalog) Lookup(symbol string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pairs[strings.ToUpper(symbol)]
	return p, ok
}

// Symbols returns a copy of the mapping.
func (c *Catalog) Symbols() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.pairs))
	for k, v := range c.pairs {
		out[k] = v
	}
	return out
}

// SortedSymbols returns the base assets in lexical order.
func (c *Catalog) SortedSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.pairs))
	for k := range c.pairs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pairs)
}

// RefreshedAt is the time of the last successful load, zero if none.
func (c *Catalog) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

func (c *Catalog) set(pairs map[string]string) {
	c.mu.Lock()
	c.pairs = pairs
	c.refreshedAt = c.now()
	c.mu.Unlock()
	metrics.CatalogPairs.Set(float64(len(pairs)))
}

func (c *Catalog) key() string {
	return "coindash:pairs:" + c.quote
}

func (c *Catalog) readMirror(ctx context.Context) (map[string]string, bool) {
	if c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, c.key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.With("catalog").WithError(err).Warn("redis read failed")
		}
		return nil, false
	}
	var pairs map[string]string
	if err := json.Unmarshal(b, &pairs); err != nil || len(pairs) == 0 {
		_ = c.rdb.Del(ctx, c.key()).Err()
		return nil, false
	}
	return pairs, true
}

func (c *Catalog) writeMirror(ctx context.Context, pairs map[string]string) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(pairs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(), b, c.ttl).Err(); err != nil {
		logger.With("catalog").WithError(err).Warn("redis write failed")
	}
}
