package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/models"
)

func sampleHistory(t *testing.T) []models.HistoricalResult {
	return []models.HistoricalResult{
		result(t, "h1", "2023-01-10", 2, 100),
		result(t, "h1", "2023-02-10", 4, 0),
		result(t, "h1", "2023-03-10", 1, 500),
		result(t, "h1", "2023-04-10", 6, 0),
		result(t, "h2", "2023-03-01", 3, 200),
	}
}

func TestAggregateAllWindow(t *testing.T) {
	agg := NewAggregator(sampleHistory(t))

	got, err := agg.Aggregate([]string{"h1", "h2"}, day(t, "2023-05-01"), WindowAll)
	require.NoError(t, err)

	require.Contains(t, got, "h1")
	assert.InDelta(t, (2+4+1+6)/4.0, got["h1"].AvgFinishRank, 1e-9)
	assert.InDelta(t, 600/4.0, got["h1"].AvgPrizeMoney, 1e-9)
	assert.Equal(t, 4, got["h1"].Races)
	assert.InDelta(t, 3.0, got["h2"].AvgFinishRank, 1e-9)
}

func TestAggregateLastNTakesMostRecent(t *testing.T) {
	agg := NewAggregator(sampleHistory(t))

	got, err := agg.Aggregate([]string{"h1"}, day(t, "2023-05-01"), mustWindow(t, 2))
	require.NoError(t, err)

	// 2023-04-10 (6) and 2023-03-10 (1)
	assert.InDelta(t, 3.5, got["h1"].AvgFinishRank, 1e-9)
	assert.InDelta(t, 250.0, got["h1"].AvgPrizeMoney, 1e-9)
	assert.Equal(t, 2, got["h1"].Races)
}

func TestAggregateFewerRecordsThanWindow(t *testing.T) {
	agg := NewAggregator(sampleHistory(t))

	got, err := agg.Aggregate([]string{"h2"}, day(t, "2023-05-01"), mustWindow(t, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, got["h2"].Races)
	assert.InDelta(t, 200.0, got["h2"].AvgPrizeMoney, 1e-9)
}

func TestAggregateNoLookahead(t *testing.T) {
	asOf := day(t, "2023-03-10")
	base := sampleHistory(t)

	before, err := NewAggregator(base).Aggregate([]string{"h1"}, asOf, WindowAll)
	require.NoError(t, err)

	poisoned := append(append([]models.HistoricalResult(nil), base...),
		result(t, "h1", "2023-03-10", 18, 1e9),
		result(t, "h1", "2024-12-31", 18, 1e9),
	)
	after, err := NewAggregator(poisoned).Aggregate([]string{"h1"}, asOf, WindowAll)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	// only 2023-01-10 and 2023-02-10 precede the race date
	assert.Equal(t, 2, after["h1"].Races)
	assert.InDelta(t, 3.0, after["h1"].AvgFinishRank, 1e-9)
}

func TestAggregateHorseWithoutPriorRecordsIsAbsent(t *testing.T) {
	agg := NewAggregator(sampleHistory(t))

	got, err := agg.Aggregate([]string{"h1", "h2", "h3"}, day(t, "2023-01-10"), WindowAll)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregateIgnoresOtherHorses(t *testing.T) {
	agg := NewAggregator(sampleHistory(t))

	got, err := agg.Aggregate([]string{"h2"}, day(t, "2023-05-01"), WindowAll)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, "h1")
}
