package ml

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/race-forecast/internal/metrics"
	"github.com/yourusername/race-forecast/internal/models"
)

// CacheKey identifies one prediction set in the cache
type CacheKey struct {
	Year         int
	GrandPrix    string
	Session      string
	ModelVersion string
}

// String returns the string representation of the cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%s", k.Year, k.GrandPrix, k.Session, k.ModelVersion)
}

// PredictionCache provides in-memory caching for generated prediction sets
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached prediction set
func (pc *PredictionCache) Get(ctx context.Context, key CacheKey) *models.PredictionSet {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if result, found := pc.cache.Get(key.String()); found {
		pc.hitCount++
		pc.updateMetrics()
		if set, ok := result.(*models.PredictionSet); ok {
			return set
		}
	}

	pc.missCount++
	pc.updateMetrics()
	return nil
}

// Set stores a prediction set in cache
func (pc *PredictionCache) Set(ctx context.Context, key CacheKey, set *models.PredictionSet) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
	}

	pc.cache.Set(key.String(), set, pc.ttl)
}

// InvalidateModelVersion removes all cache entries produced by a model
// version, regardless of event. Used after a retrain replaces the model.
func (pc *PredictionCache) InvalidateModelVersion(ctx context.Context, modelVersion string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	suffix := ":" + modelVersion
	for k := range pc.cache.Items() {
		if strings.HasSuffix(k, suffix) {
			pc.cache.Delete(k)
		}
	}
}

// Invalidate removes a single cache entry
func (pc *PredictionCache) Invalidate(ctx context.Context, key CacheKey) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Delete(key.String())
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.cache.Flush()
	pc.hitCount = 0
	pc.missCount = 0
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	return pc.stats()
}

func (pc *PredictionCache) stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount
	misses = pc.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// updateMetrics publishes the hit ratio gauge. Caller holds the lock.
func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.stats()
	metrics.PredictionCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
