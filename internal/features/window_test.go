package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/models"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"all", "all", false},
		{"ALL", "all", false},
		{" 5 ", "5", false},
		{"9", "9", false},
		{"0", "", true},
		{"-3", "", true},
		{"five", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			w, err := ParseWindow(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.String())
		})
	}
}

func TestParseWindowsRejectsDuplicates(t *testing.T) {
	_, err := ParseWindows([]string{"5", "all", "5"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	windows, err := ParseWindows([]string{"5", "9", "all"})
	require.NoError(t, err)
	assert.Len(t, windows, 3)
}

func TestWindowColumnsAreDistinct(t *testing.T) {
	five := mustWindow(t, 5)
	assert.Equal(t, "finish_rank_avg_5", five.RankColumn())
	assert.Equal(t, "prize_avg_5", five.PrizeColumn())
	assert.Equal(t, "finish_rank_avg_all", WindowAll.RankColumn())
	assert.NotEqual(t, five.RankColumn(), WindowAll.RankColumn())
}
