package tier

import (
	"context"
	"sync/atomic"
	"time"

	"mediabot/internal/apperr"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_tier_cache_hits_total",
		Help: "Subscriber expiry lookups served from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediabot_tier_cache_misses_total",
		Help: "Subscriber expiry lookups that reached the store.",
	})
)

type cachedExpiry struct {
	expiry time.Time
	found  bool
}

// CachedStore keeps recent expiry lookups, including misses, for a short
// TTL. SetExpiry writes through and drops the cached entry. A lookup that
// overlapped a SetExpiry does not populate the cache.
type CachedStore struct {
	next  Store
	cache *expirable.LRU[int64, cachedExpiry]
	// writes is bumped before and after every SetExpiry; lookups only cache
	// when it is unchanged across their store read.
	writes atomic.Uint64
}

func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: expirable.NewLRU[int64, cachedExpiry](size, nil, ttl),
	}
}

func (c *CachedStore) Expiry(ctx context.Context, userID int64) (time.Time, error) {
	if v, ok := c.cache.Get(userID); ok {
		cacheHitsTotal.Inc()
		if !v.found {
			return time.Time{}, apperr.New(apperr.KindNotFound, "subscriber not found")
		}
		return v.expiry, nil
	}
	cacheMissesTotal.Inc()

	gen := c.writes.Load()
	expiry, err := c.next.Expiry(ctx, userID)
	switch {
	case c.writes.Load() != gen:
	case err == nil:
		c.cache.Add(userID, cachedExpiry{expiry: expiry, found: true})
	case apperr.Is(err, apperr.KindNotFound):
		c.cache.Add(userID, cachedExpiry{})
	}
	return expiry, err
}

func (c *CachedStore) SetExpiry(ctx context.Context, userID int64, expiry time.Time) error {
	c.writes.Add(1)
	c.cache.Remove(userID)
	err := c.next.SetExpiry(ctx, userID, expiry)
	c.writes.Add(1)
	c.cache.Remove(userID)
	return err
}
