package features

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/models"
)

func tableOverDates(t *testing.T, dates ...string) *FeatureTable {
	table := &FeatureTable{Columns: []string{"x"}}
	for i, date := range dates {
		for horse := 1; horse <= 3; horse++ {
			table.Rows = append(table.Rows, FeatureRow{
				RaceID:      fmt.Sprintf("r%02d", i),
				HorseNumber: horse,
				Date:        day(t, date),
				Values:      []float64{float64(horse)},
			})
		}
	}
	return table
}

func TestTemporalSplitByDate(t *testing.T) {
	table := tableOverDates(t, "2023-01-01", "2023-01-08", "2023-01-15", "2023-01-22", "2023-01-29",
		"2023-01-01", "2023-01-29")

	train, test, err := TemporalSplit(table, 0.4)
	require.NoError(t, err)

	// 5 distinct dates, round(5*0.6) = 3 go to train
	assert.Equal(t, 12, train.Len())
	assert.Equal(t, 9, test.Len())
	assert.True(t, train.SameSchema(test))
}

func TestTemporalSplitIntegrity(t *testing.T) {
	table := tableOverDates(t, "2023-03-05", "2023-01-01", "2023-02-11", "2023-01-01", "2023-04-01", "2023-02-12")

	for _, fraction := range []float64{0, 0.1, 0.25, 0.3, 0.5, 0.75, 1} {
		t.Run(fmt.Sprintf("%.2f", fraction), func(t *testing.T) {
			train, test, err := TemporalSplit(table, fraction)
			require.NoError(t, err)
			assert.Equal(t, table.Len(), train.Len()+test.Len())

			trainRaces := make(map[string]bool)
			for _, row := range train.Rows {
				trainRaces[row.RaceID] = true
			}
			for _, row := range test.Rows {
				assert.False(t, trainRaces[row.RaceID], "race %s in both partitions", row.RaceID)
				for _, trainRow := range train.Rows {
					assert.False(t, trainRow.Date.After(row.Date))
				}
			}
		})
	}
}

func TestTemporalSplitExtremes(t *testing.T) {
	table := tableOverDates(t, "2023-01-01", "2023-01-02")

	train, test, err := TemporalSplit(table, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, train.Len())
	assert.Equal(t, 0, test.Len())

	train, test, err = TemporalSplit(table, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, train.Len())
	assert.Equal(t, 6, test.Len())
}

func TestTemporalSplitInvalidFraction(t *testing.T) {
	table := tableOverDates(t, "2023-01-01")
	for _, fraction := range []float64{-0.1, 1.5} {
		_, _, err := TemporalSplit(table, fraction)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	}
}
