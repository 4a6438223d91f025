package backtest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Standardize makes probabilities comparable across races: each race's
// probabilities are z-scored against that race's mean and sample standard
// deviation, then the whole batch is min-max scaled to [0, 1].
// Races with a single runner or no spread score 0 before scaling, and a
// batch with no spread scales to all zeros.
func Standardize(raceIDs []string, proba []float64) ([]float64, error) {
	if len(raceIDs) != len(proba) {
		return nil, fmt.Errorf("%w: %d race ids for %d probabilities", models.ErrInvalidArgument, len(raceIDs), len(proba))
	}
	if len(proba) == 0 {
		return []float64{}, nil
	}

	byRace := make(map[string][]int)
	for i, raceID := range raceIDs {
		byRace[raceID] = append(byRace[raceID], i)
	}

	z := make([]float64, len(proba))
	for _, indices := range byRace {
		values := make([]float64, len(indices))
		for j, i := range indices {
			values[j] = proba[i]
		}
		mean, std := stat.MeanStdDev(values, nil)
		for j, i := range indices {
			if len(indices) < 2 || std == 0 || math.IsNaN(std) {
				z[i] = 0
				continue
			}
			z[i] = (values[j] - mean) / std
		}
	}

	lo, hi := floats.Min(z), floats.Max(z)
	scaled := make([]float64, len(z))
	if hi == lo {
		return scaled, nil
	}
	for i, v := range z {
		scaled[i] = (v - lo) / (hi - lo)
	}
	return scaled, nil
}
