package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/models"
)

func TestStandardizeWithinRace(t *testing.T) {
	raceIDs := []string{"r1", "r1", "r1", "r2", "r2"}
	proba := []float64{0.1, 0.2, 0.3, 0.5, 0.9}

	scores, err := Standardize(raceIDs, proba)
	require.NoError(t, err)

	// r1 z = -1, 0, 1; r2 z = -0.7071, 0.7071
	assert.InDelta(t, 0.0, scores[0], 1e-9)
	assert.InDelta(t, 0.5, scores[1], 1e-9)
	assert.InDelta(t, 1.0, scores[2], 1e-9)
	assert.InDelta(t, scores[3]+scores[4], 1.0, 1e-9)
	assert.Less(t, scores[3], scores[4])
}

func TestStandardizeDegenerateRaces(t *testing.T) {
	scores, err := Standardize([]string{"solo", "flat", "flat"}, []float64{0.8, 0.4, 0.4})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, scores)

	_, err = Standardize([]string{"r1"}, []float64{0.1, 0.2})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	empty, err := Standardize(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStandardizeSoloRunnerLandsMidRange(t *testing.T) {
	// a solo runner's raw 0.95 carries no intra-race ranking: z = 0
	raceIDs := []string{"r1", "r1", "r1", "solo"}
	scores, err := Standardize(raceIDs, []float64{0.1, 0.2, 0.3, 0.95})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5}, scores, 1e-9)

	betOn := func(threshold float64) []int {
		var picked []int
		for i, score := range scores {
			if score >= threshold {
				picked = append(picked, i)
			}
		}
		return picked
	}
	assert.Equal(t, []int{1, 2, 3}, betOn(0.5))
	assert.Equal(t, []int{2}, betOn(0.6))
}

func TestAUC(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []int
		want   float64
	}{
		{"perfect", []float64{0.1, 0.4, 0.35, 0.8}, []int{0, 1, 0, 1}, 1.0},
		{"inverted", []float64{0.9, 0.1}, []int{0, 1}, 0.0},
		{"sklearn example", []float64{0.1, 0.4, 0.35, 0.8}, []int{0, 0, 1, 1}, 0.75},
		{"ties", []float64{0.5, 0.5, 0.5, 0.5}, []int{0, 1, 0, 1}, 0.5},
		{"tie across classes", []float64{0.1, 0.4, 0.35, 0.8, 0.4, 0.7, 0.2, 0.9}, []int{0, 1, 0, 1, 0, 1, 0, 0}, 11.5 / 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(tt.scores, tt.labels)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAUCRequiresBothClasses(t *testing.T) {
	_, err := AUC([]float64{0.1, 0.2}, []int{1, 1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = AUC([]float64{0.1, 0.2}, []int{1, -1})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestDedupeByBetsKeepsLastPerCount(t *testing.T) {
	curve := []models.GainPoint{
		{Threshold: 0.1, NBets: 10, ReturnRate: 0.7},
		{Threshold: 0.2, NBets: 8, ReturnRate: 0.8},
		{Threshold: 0.3, NBets: 8, ReturnRate: 0.9},
		{Threshold: 0.4, NBets: 5, ReturnRate: 1.1},
	}

	deduped := DedupeByBets(curve)

	require.Len(t, deduped, 3)
	assert.Equal(t, 0.3, deduped[1].Threshold)
	assert.Equal(t, 0.9, deduped[1].ReturnRate)
	assert.Len(t, curve, 4)

	best, ok := BestPoint(curve)
	require.True(t, ok)
	assert.Equal(t, 0.4, best.Threshold)
	_, ok = BestPoint(nil)
	assert.False(t, ok)
}

func TestTopFeaturesAllWhenNExceedsLength(t *testing.T) {
	importances := []models.FeatureImportance{{Feature: "a", Importance: 1}, {Feature: "b", Importance: 2}}
	top := TopFeatures(importances, 20)
	assert.Equal(t, "b", top[0].Feature)
	assert.Len(t, top, 2)
	assert.Equal(t, "a", importances[0].Feature)
}

func TestReports(t *testing.T) {
	auc := 0.71
	run := &models.EvaluationRun{
		ID:           uuid.New(),
		Kind:         models.ReturnPlace,
		ModelVersion: "v3",
		SampleCount:  100,
		MinBets:      50,
		AUC:          &auc,
		Curve: []models.GainPoint{
			{Threshold: 0.5, NBets: 120, ReturnRate: 0.84},
			{Threshold: 0.6, NBets: 80, ReturnRate: 1.02},
		},
	}

	report := GenerateConsoleReport(run, []models.FeatureImportance{{Feature: "horse_id", Importance: 12}})
	assert.Contains(t, report, "AUC: 0.7100")
	assert.Contains(t, report, "Best Return Rate: 102.00% at threshold 0.60 (80 bets)")
	assert.Contains(t, report, "horse_id")

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reports", "curve.csv")
	require.NoError(t, GenerateCSVExport(run.Curve, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{"threshold,n_bets,return_rate", "0.5000,120,0.840000", "0.6000,80,1.020000"}, lines)

	jsonPath := filepath.Join(dir, "run.json")
	require.NoError(t, GenerateJSONExport(run, jsonPath))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "place"`)
}
