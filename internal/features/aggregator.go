package features

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Aggregate is a horse's rolling averages relative to one race date.
type Aggregate struct {
	AvgFinishRank float64
	AvgPrizeMoney float64
	Races         int
}

// Aggregator computes per-horse averages from history strictly before a date.
// It indexes history once; Aggregate is safe for concurrent use.
type Aggregator struct {
	byHorse map[string][]models.HistoricalResult
}

// NewAggregator indexes history by horse, newest record first.
func NewAggregator(history []models.HistoricalResult) *Aggregator {
	byHorse := make(map[string][]models.HistoricalResult)
	for _, record := range history {
		byHorse[record.HorseID] = append(byHorse[record.HorseID], record)
	}
	for _, records := range byHorse {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Date.After(records[j].Date)
		})
	}
	return &Aggregator{byHorse: byHorse}
}

// Aggregate returns averages for each of horseIDs using only records dated
// strictly before asOf. Horses without such records are absent from the result.
func (a *Aggregator) Aggregate(horseIDs []string, asOf time.Time, window Window) (map[string]Aggregate, error) {
	if window.n < 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", models.ErrInvalidArgument, window.n)
	}

	result := make(map[string]Aggregate, len(horseIDs))
	for _, horseID := range horseIDs {
		if _, done := result[horseID]; done {
			continue
		}
		records := a.qualifying(horseID, asOf)
		if !window.IsAll() && len(records) > window.n {
			records = records[:window.n]
		}
		if len(records) == 0 {
			continue
		}

		ranks := make([]float64, len(records))
		prizes := make([]float64, len(records))
		for i, record := range records {
			ranks[i] = float64(record.FinishRank)
			prizes[i] = record.PrizeMoney
		}
		result[horseID] = Aggregate{
			AvgFinishRank: stat.Mean(ranks, nil),
			AvgPrizeMoney: stat.Mean(prizes, nil),
			Races:         len(records),
		}
	}
	return result, nil
}

// qualifying returns the horse's records dated before asOf, newest first.
func (a *Aggregator) qualifying(horseID string, asOf time.Time) []models.HistoricalResult {
	records := a.byHorse[horseID]
	start := sort.Search(len(records), func(i int) bool {
		return records[i].Date.Before(asOf)
	})
	return records[start:]
}
