package ml

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

// Classifier is the scoring surface the cache wraps
type Classifier interface {
	PredictProba(ctx context.Context, table *features.FeatureTable) ([]float64, error)
	FeatureImportance(ctx context.Context) ([]models.FeatureImportance, error)
	ModelVersion() string
}

// CachedClassifier wraps a Classifier with per-entry prediction caching
type CachedClassifier struct {
	inner  Classifier
	cache  *PredictionCache
	logger *logrus.Logger
}

// NewCachedClassifier creates a new cached classifier
func NewCachedClassifier(inner Classifier, ttl time.Duration, maxSize int, logger *logrus.Logger) *CachedClassifier {
	return &CachedClassifier{
		inner:  inner,
		cache:  NewPredictionCache(ttl, maxSize),
		logger: logger,
	}
}

// ModelVersion returns the wrapped classifier's model version
func (c *CachedClassifier) ModelVersion() string {
	return c.inner.ModelVersion()
}

// PredictProba serves cached rows from memory and sends only the rest to the
// wrapped classifier.
func (c *CachedClassifier) PredictProba(ctx context.Context, table *features.FeatureTable) ([]float64, error) {
	version := c.inner.ModelVersion()
	proba := make([]float64, table.Len())
	uncached := &features.FeatureTable{Columns: table.Columns}
	uncachedIndices := make([]int, 0)

	for i, row := range table.Rows {
		key := NewCacheKey(row, version)
		if cached, ok := c.cache.Get(key); ok {
			proba[i] = cached
			continue
		}
		uncached.Rows = append(uncached.Rows, row)
		uncachedIndices = append(uncachedIndices, i)
	}

	if uncached.Len() == 0 {
		return proba, nil
	}

	c.logger.WithFields(logrus.Fields{
		"total_rows": table.Len(),
		"cached":     table.Len() - uncached.Len(),
		"uncached":   uncached.Len(),
	}).Debug("Scoring with partial cache")

	fresh, err := c.inner.PredictProba(ctx, uncached)
	if err != nil {
		return nil, err
	}
	if len(fresh) != uncached.Len() {
		return nil, ErrInvalidPrediction
	}
	for j, p := range fresh {
		i := uncachedIndices[j]
		row := table.Rows[i]
		c.cache.Set(NewCacheKey(row, version), p)
		proba[i] = p
	}
	return proba, nil
}

// FeatureImportance is not cached
func (c *CachedClassifier) FeatureImportance(ctx context.Context) ([]models.FeatureImportance, error) {
	return c.inner.FeatureImportance(ctx)
}

// InvalidateModel drops every cached prediction of the current model version
func (c *CachedClassifier) InvalidateModel() {
	removed := c.cache.InvalidateVersion(c.inner.ModelVersion())
	c.logger.WithField("removed", removed).Debug("Invalidated prediction cache")
}

// GetCacheStats returns cache statistics
func (c *CachedClassifier) GetCacheStats() (hits, misses uint64, hitRatio float64) {
	return c.cache.Stats()
}
