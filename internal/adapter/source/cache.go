package source

import (
	"context"
	"fmt"

	"github.com/couchcryptid/crime-flowers/internal/domain"
	"github.com/couchcryptid/crime-flowers/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DatasetFetcher is the interface CachedFetcher decorates.
type DatasetFetcher interface {
	Fetch(ctx context.Context, id string) (domain.Dataset, error)
}

// CachedFetcher wraps a fetcher with an in-memory LRU of parsed datasets, so
// switching back to a source does not reparse it.
type CachedFetcher struct {
	inner   DatasetFetcher
	cache   *lru.Cache[string, domain.Dataset]
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator holding up to maxEntries
// datasets.
func NewCachedFetcher(inner DatasetFetcher, maxEntries int, metrics *observability.Metrics) (*CachedFetcher, error) {
	cache, err := lru.New[string, domain.Dataset](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create dataset cache: %w", err)
	}
	return &CachedFetcher{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedFetcher) Fetch(ctx context.Context, id string) (domain.Dataset, error) {
	if ds, ok := c.cache.Get(id); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	ds, err := c.inner.Fetch(ctx, id)
	if err != nil {
		return ds, err
	}
	// Only successful loads are cached so a transient failure can be retried
	// by switching again.
	c.cache.Add(id, ds)
	return ds, nil
}

// Len reports how many datasets are cached.
func (c *CachedFetcher) Len() int { return c.cache.Len() }
