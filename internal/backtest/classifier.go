package backtest

import (
	"context"

	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

// Classifier is a trained binary classifier. PredictProba returns one
// positive-class probability per table row, in row order.
type Classifier interface {
	PredictProba(ctx context.Context, table *features.FeatureTable) ([]float64, error)
	FeatureImportance(ctx context.Context) ([]models.FeatureImportance, error)
	ModelVersion() string
}
