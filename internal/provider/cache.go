package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/models"
)

// CachedNavProvider wraps a NavProvider (and optionally a BenchmarkProvider)
// with an in-memory TTL cache. NAV histories are immutable once published,
// so a hit is always safe to serve; the TTL only bounds staleness of the
// latest observation.
type CachedNavProvider struct {
	next      NavProvider
	benchmark BenchmarkProvider
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedNavProvider wraps next with a TTL cache. benchmark may be nil
// when the underlying provider does not serve index levels.
func NewCachedNavProvider(next NavProvider, benchmark BenchmarkProvider, ttl time.Duration, maxSize int) *CachedNavProvider {
	return &CachedNavProvider{
		next:      next,
		benchmark: benchmark,
		cache:     cache.New(ttl, ttl*2),
		ttl:       ttl,
		maxSize:   maxSize,
	}
}

func seriesKey(fundID string, start, end time.Time) string {
	return fmt.Sprintf("nav:%s:%s:%s", fundID, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func latestKey(fundID string) string {
	return "latest:" + fundID
}

func indexKey(indexName string, start, end time.Time) string {
	return fmt.Sprintf("idx:%s:%s:%s", indexName, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// GetNavSeries serves the fund's NAV history from cache when possible
func (p *CachedNavProvider) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	key := seriesKey(fundID, start, end)
	if cached, found := p.cache.Get(key); found {
		if series, ok := cached.(models.NavSeries); ok {
			p.recordHit()
			return series, nil
		}
	}
	p.recordMiss()

	series, err := p.next.GetNavSeries(ctx, fundID, start, end)
	if err != nil {
		return nil, err
	}
	p.set(key, series)
	return series, nil
}

// GetLatestNav serves the most recent NAV from cache when possible
func (p *CachedNavProvider) GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error) {
	key := latestKey(fundID)
	if cached, found := p.cache.Get(key); found {
		if point, ok := cached.(models.NavPoint); ok {
			p.recordHit()
			return point, nil
		}
	}
	p.recordMiss()

	point, err := p.next.GetLatestNav(ctx, fundID)
	if err != nil {
		return models.NavPoint{}, err
	}
	p.set(key, point)
	return point, nil
}

// GetIndexSeries serves benchmark levels from cache when possible
func (p *CachedNavProvider) GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error) {
	if p.benchmark == nil {
		return nil, NewProviderError("nav_cache", ErrCodeNotFound, "no benchmark provider configured", models.ErrNotFound)
	}

	key := indexKey(indexName, start, end)
	if cached, found := p.cache.Get(key); found {
		if series, ok := cached.(models.NavSeries); ok {
			p.recordHit()
			return series, nil
		}
	}
	p.recordMiss()

	series, err := p.benchmark.GetIndexSeries(ctx, indexName, start, end)
	if err != nil {
		return nil, err
	}
	p.set(key, series)
	return series, nil
}

// Invalidate drops all cached entries for a fund
func (p *CachedNavProvider) Invalidate(fundID string) {
	prefix := "nav:" + fundID + ":"
	for k := range p.cache.Items() {
		if k == latestKey(fundID) || (len(k) >= len(prefix) && k[:len(prefix)] == prefix) {
			p.cache.Delete(k)
		}
	}
}

// Clear flushes the entire cache
func (p *CachedNavProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.Flush()
	p.hitCount = 0
	p.missCount = 0
}

// Stats returns cache statistics
func (p *CachedNavProvider) Stats() (hits, misses uint64, ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *CachedNavProvider) statsLocked() (hits, misses uint64, ratio float64) {
	hits = p.hitCount
	misses = p.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached entries
func (p *CachedNavProvider) ItemCount() int {
	return p.cache.ItemCount()
}

func (p *CachedNavProvider) set(key string, value interface{}) {
	if p.cache.ItemCount() >= p.maxSize {
		p.cache.DeleteExpired()
	}
	p.cache.Set(key, value, p.ttl)
}

func (p *CachedNavProvider) recordHit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hitCount++
	p.updateMetricsLocked()
}

func (p *CachedNavProvider) recordMiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.missCount++
	p.updateMetricsLocked()
}

func (p *CachedNavProvider) updateMetricsLocked() {
	_, _, ratio := p.statsLocked()
	metrics.NavCacheHitRatio.Set(ratio)
}
