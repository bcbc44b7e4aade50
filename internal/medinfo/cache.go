package medinfo

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// cacheTTL is how long a cached lookup result stays fresh. Medicine prices
// move slowly; a day keeps repeat prescriptions cheap without going stale.
const cacheTTL = 24 * time.Hour

// ResultCache persists lookup results between runs. Implemented by
// storage.SQLiteStore.
type ResultCache interface {
	// GetLookup returns the cached result and when it was fetched, or
	// (nil, zero, nil) on a miss.
	GetLookup(name string) (*Result, time.Time, error)
	SetLookup(name string, result *Result) error
}

// CachedLookuper wraps a Lookuper with a persistent cache. Only success and
// fallback results are cached; errors are always retried on the next ask.
type CachedLookuper struct {
	inner Lookuper
	cache ResultCache
	ttl   time.Duration
}

func NewCachedLookuper(inner Lookuper, cache ResultCache) *CachedLookuper {
	return &CachedLookuper{inner: inner, cache: cache, ttl: cacheTTL}
}

// cacheKey folds case and whitespace so "Paracetamol " and "paracetamol"
// share an entry.
func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup implements Lookuper with read-through caching.
func (c *CachedLookuper) Lookup(ctx context.Context, name string) Result {
	key := cacheKey(name)

	if c.cache != nil {
		cached, fetchedAt, err := c.cache.GetLookup(key)
		if err != nil {
			log.Warn().Err(err).Str("medicine", name).Msg("failed to check lookup cache")
		} else if cached != nil && time.Since(fetchedAt) < c.ttl {
			log.Debug().Str("medicine", name).Msg("lookup cache hit")
			cached.Name = name
			return *cached
		}
	}

	result := c.inner.Lookup(ctx, name)

	if c.cache != nil && result.Status != StatusError {
		if err := c.cache.SetLookup(key, &result); err != nil {
			log.Warn().Err(err).Str("medicine", name).Msg("failed to cache lookup result")
		}
	}

	return result
}
