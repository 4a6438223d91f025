package ml

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/keiba-edge/internal/features"
)

// CacheKey identifies one entry's prediction under one model version.
// FeatureDigest changes whenever the entry's feature values are rebuilt.
type CacheKey struct {
	RaceID        string
	HorseNumber   int
	FeatureDigest uint64
	ModelVersion  string
}

// NewCacheKey builds the key of one feature row
func NewCacheKey(row features.FeatureRow, modelVersion string) CacheKey {
	return CacheKey{
		RaceID:        row.RaceID,
		HorseNumber:   row.HorseNumber,
		FeatureDigest: FeatureDigest(row.Values),
		ModelVersion:  modelVersion,
	}
}

// FeatureDigest hashes feature values by their bit patterns, so NaN
// (missing) is stable.
func FeatureDigest(values []float64) uint64 {
	digest := xxhash.New()
	buf := make([]byte, 8)
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		_, _ = digest.Write(buf)
	}
	return digest.Sum64()
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%d:%x:%s", k.RaceID, k.HorseNumber, k.FeatureDigest, k.ModelVersion)
}

// PredictionCache provides in-memory caching for predicted probabilities
type PredictionCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewPredictionCache creates a new prediction cache
func NewPredictionCache(ttl time.Duration, maxSize int) *PredictionCache {
	return &PredictionCache{
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Get retrieves a cached probability
func (pc *PredictionCache) Get(key CacheKey) (float64, bool) {
	if result, found := pc.cache.Get(key.String()); found {
		if proba, ok := result.(float64); ok {
			pc.hitCount.Add(1)
			pc.updateMetrics()
			return proba, true
		}
	}
	pc.missCount.Add(1)
	pc.updateMetrics()
	return 0, false
}

// Set stores a probability. When the cache is full, expired items are
// evicted first and the value is dropped if there is still no room.
func (pc *PredictionCache) Set(key CacheKey, proba float64) bool {
	if pc.maxSize > 0 && pc.cache.ItemCount() >= pc.maxSize {
		pc.cache.DeleteExpired()
		if pc.cache.ItemCount() >= pc.maxSize {
			return false
		}
	}
	pc.cache.Set(key.String(), proba, pc.ttl)
	return true
}

// InvalidateVersion removes every entry cached under modelVersion
func (pc *PredictionCache) InvalidateVersion(modelVersion string) int {
	suffix := ":" + modelVersion
	removed := 0
	for k := range pc.cache.Items() {
		if strings.HasSuffix(k, suffix) {
			pc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Clear flushes the entire cache
func (pc *PredictionCache) Clear() {
	pc.cache.Flush()
	pc.hitCount.Store(0)
	pc.missCount.Store(0)
}

// Stats returns cache statistics
func (pc *PredictionCache) Stats() (hits, misses uint64, ratio float64) {
	hits = pc.hitCount.Load()
	misses = pc.missCount.Load()
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

func (pc *PredictionCache) updateMetrics() {
	_, _, ratio := pc.Stats()
	MLCacheHitRatio.Set(ratio)
}

// ItemCount returns the number of items in cache
func (pc *PredictionCache) ItemCount() int {
	return pc.cache.ItemCount()
}
