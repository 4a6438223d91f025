package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/models"
)

func TestEncodeIdentifierFirstSeenOrder(t *testing.T) {
	state, codes := EncodeIdentifier(NewCodecState(), "horse_id", []string{"b", "a", "b", "c"})

	assert.Equal(t, []int{0, 1, 0, 2}, codes)
	assert.Equal(t, []string{"b", "a", "c"}, state.Fields["horse_id"])
	assert.Equal(t, 1, state.Version)
}

func TestEncodeIdentifierIsDeterministic(t *testing.T) {
	prior, _ := EncodeIdentifier(NewCodecState(), "horse_id", []string{"x", "y"})
	values := []string{"z", "x", "w", "y"}

	first, firstCodes := EncodeIdentifier(prior, "horse_id", values)
	second, secondCodes := EncodeIdentifier(prior, "horse_id", values)

	assert.Equal(t, firstCodes, secondCodes)
	assert.Equal(t, first, second)
}

func TestEncodeIdentifierKeepsExistingCodes(t *testing.T) {
	prior, priorCodes := EncodeIdentifier(NewCodecState(), "jockey_id", []string{"j1", "j2", "j3"})
	next, codes := EncodeIdentifier(prior, "jockey_id", []string{"j9", "j3", "j1", "j8"})

	assert.Equal(t, []int{3, 2, 0, 4}, codes)
	for i, value := range []string{"j1", "j2", "j3"} {
		code, ok := next.Code("jockey_id", value)
		require.True(t, ok)
		assert.Equal(t, priorCodes[i], code)
	}
}

func TestEncodeIdentifierDoesNotMutatePrior(t *testing.T) {
	prior, _ := EncodeIdentifier(NewCodecState(), "horse_id", []string{"a"})
	_, _ = EncodeIdentifier(prior, "horse_id", []string{"b"})
	_, _ = EncodeIdentifier(prior, "jockey_id", []string{"j"})

	assert.Equal(t, []string{"a"}, prior.Fields["horse_id"])
	assert.Equal(t, 0, prior.Len("jockey_id"))
	assert.Equal(t, 1, prior.Version)
}

func TestEncodeIdentifierNoNewValuesKeepsVersion(t *testing.T) {
	prior, _ := EncodeIdentifier(NewCodecState(), "horse_id", []string{"a", "b"})
	next, codes := EncodeIdentifier(prior, "horse_id", []string{"b", "a"})

	assert.Equal(t, prior.Version, next.Version)
	assert.Equal(t, []int{1, 0}, codes)
}

func TestBuildVocabularies(t *testing.T) {
	reference := []models.RaceEntry{
		{Weather: "晴", Sex: "牡"},
		{Weather: "曇", Sex: "牝"},
		{Weather: "晴", Sex: ""},
		{Weather: "雨", Sex: "セ"},
	}
	vocabs, err := BuildVocabularies(reference, []string{models.ColumnWeather, models.ColumnSex})
	require.NoError(t, err)

	assert.Equal(t, []string{"晴", "曇", "雨"}, vocabs[0].Values)
	assert.Equal(t, []string{"牡", "牝", "セ"}, vocabs[1].Values)
	assert.Equal(t, []string{"weather_晴", "weather_曇", "weather_雨"}, vocabs[0].OneHotColumns())

	_, err = BuildVocabularies(reference, []string{"horse_id"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestEncodeNominalSubsetKeepsFullSchema(t *testing.T) {
	vocab := Vocabulary{Column: "ground_state", Values: []string{"良", "稍重", "重", "不良"}}

	encoded, err := EncodeNominal([]string{"重", "良", ""}, vocab)
	require.NoError(t, err)

	assert.Equal(t, [][]bool{
		{false, false, true, false},
		{true, false, false, false},
		{false, false, false, false},
	}, encoded)
}

func TestEncodeNominalUnknownCategory(t *testing.T) {
	vocab := Vocabulary{Column: "weather", Values: []string{"晴", "曇"}}

	_, err := EncodeNominal([]string{"晴", "雪", "雪", "霧"}, vocab)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownCategory)
	assert.Contains(t, err.Error(), "雪, 霧")
}
