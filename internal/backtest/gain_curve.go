package backtest

import (
	"github.com/yourusername/keiba-edge/internal/models"
)

// DedupeByBets reduces a curve to one point per bet count, keeping the last
// point in sweep order for each count. Output follows the first occurrence
// of each count.
func DedupeByBets(curve []models.GainPoint) []models.GainPoint {
	position := make(map[int]int, len(curve))
	deduped := make([]models.GainPoint, 0, len(curve))
	for _, point := range curve {
		if i, ok := position[point.NBets]; ok {
			deduped[i] = point
			continue
		}
		position[point.NBets] = len(deduped)
		deduped = append(deduped, point)
	}
	return deduped
}

// BestPoint returns the point with the highest return rate; the earliest wins ties.
func BestPoint(curve []models.GainPoint) (models.GainPoint, bool) {
	if len(curve) == 0 {
		return models.GainPoint{}, false
	}
	best := curve[0]
	for _, point := range curve[1:] {
		if point.ReturnRate > best.ReturnRate {
			best = point
		}
	}
	return best, true
}
