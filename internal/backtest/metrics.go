package backtest

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/keiba-edge/internal/models"
)

// AUC returns the area under the ROC curve of scores against binary labels.
// Tied scores share one cutoff. Unlabeled rows (-1) are not allowed.
func AUC(scores []float64, labels []int) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("%w: %d scores for %d labels", models.ErrInvalidArgument, len(scores), len(labels))
	}

	positives, negatives := 0, 0
	for _, label := range labels {
		switch label {
		case 1:
			positives++
		case 0:
			negatives++
		default:
			return 0, fmt.Errorf("%w: label %d is not binary", models.ErrInvalidArgument, label)
		}
	}
	if positives == 0 || negatives == 0 {
		return 0, fmt.Errorf("%w: AUC needs both classes", models.ErrInvalidArgument)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	// stat.ROC wants scores ascending
	y := make([]float64, len(order))
	classes := make([]bool, len(order))
	for j, i := range order {
		y[j] = scores[i]
		classes[j] = labels[i] == 1
	}
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// TopFeatures returns the n highest-importance features, sorted descending.
// Ties keep their input order.
func TopFeatures(importances []models.FeatureImportance, n int) []models.FeatureImportance {
	sorted := append([]models.FeatureImportance(nil), importances...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
