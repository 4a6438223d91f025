package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yourusername/keiba-edge/internal/models"
)

// TemporalSplit splits table at a date boundary: the earliest
// round(dates*(1-testFraction)) distinct race dates form train, the rest test.
// Entries of one date never straddle the boundary.
func TemporalSplit(table *FeatureTable, testFraction float64) (*FeatureTable, *FeatureTable, error) {
	if math.IsNaN(testFraction) || testFraction < 0 || testFraction > 1 {
		return nil, nil, fmt.Errorf("%w: test fraction must be within [0, 1], got %v", models.ErrInvalidArgument, testFraction)
	}

	seen := make(map[int64]struct{})
	var dates []time.Time
	for _, row := range table.Rows {
		key := row.Date.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dates = append(dates, row.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	cut := int(math.RoundToEven(float64(len(dates)) * (1 - testFraction)))
	if len(dates) == 0 || cut >= len(dates) {
		return table.subset(append([]FeatureRow(nil), table.Rows...)), table.subset(nil), nil
	}
	boundary := dates[cut]

	var train, test []FeatureRow
	for _, row := range table.Rows {
		if row.Date.Before(boundary) {
			train = append(train, row)
		} else {
			test = append(test, row)
		}
	}
	return table.subset(train), table.subset(test), nil
}
