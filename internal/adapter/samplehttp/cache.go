package samplehttp

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/hydro-sonify/internal/observability"
	"github.com/couchcryptid/hydro-sonify/internal/sampler"
)

// CachedFetcher keeps recently decoded samples by URL so that switching
// back to an arrangement does not download its files again.
type CachedFetcher struct {
	inner   sampler.Fetcher
	cache   *lru.Cache[string, *sampler.Sample] // nil when disabled
	metrics *observability.Metrics
}

// NewCachedFetcher wraps inner with a cache of up to maxEntries samples.
// A non-positive size disables caching.
func NewCachedFetcher(inner sampler.Fetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	c := &CachedFetcher{inner: inner, metrics: metrics}
	if maxEntries > 0 {
		// lru.New only fails for non-positive sizes.
		c.cache, _ = lru.New[string, *sampler.Sample](maxEntries)
	}
	return c
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) (*sampler.Sample, error) {
	if c.cache != nil {
		if s, ok := c.cache.Get(url); ok {
			c.metrics.SampleCache.WithLabelValues("hit").Inc()
			return s, nil
		}
	}
	c.metrics.SampleCache.WithLabelValues("miss").Inc()

	s, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(url, s)
	}
	return s, nil
}

// Len returns the number of cached samples.
func (c *CachedFetcher) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
