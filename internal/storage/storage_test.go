package storage

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/features"
)

func TestCodecStoreRoundTrip(t *testing.T) {
	store := NewCodecStore(filepath.Join(t.TempDir(), "state", "codec.msgpack"))

	state, codes := features.EncodeIdentifier(features.NewCodecState(), "horse_id", []string{"h1", "h2"})
	snapshot := CodecSnapshot{
		State:        state,
		Vocabularies: []features.Vocabulary{{Column: "weather", Values: []string{"晴", "曇"}}},
		Columns:      []string{"horse_id", "weather_晴", "weather_曇"},
	}
	require.NoError(t, store.Save(snapshot))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state, loaded.State)
	assert.Equal(t, snapshot.Vocabularies, loaded.Vocabularies)
	assert.Equal(t, snapshot.Columns, loaded.Columns)

	// a reloaded state encodes exactly like the original
	values := []string{"h3", "h2", "h1"}
	fromOriginal, originalCodes := features.EncodeIdentifier(state, "horse_id", values)
	fromLoaded, loadedCodes := features.EncodeIdentifier(loaded.State, "horse_id", values)
	assert.Equal(t, originalCodes, loadedCodes)
	assert.Equal(t, fromOriginal, fromLoaded)
	assert.Equal(t, []int{0, 1}, codes)
}

func TestCodecStoreMissingFile(t *testing.T) {
	store := NewCodecStore(filepath.Join(t.TempDir(), "absent.msgpack"))
	_, err := store.Load()
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCodecStoreOverwrite(t *testing.T) {
	store := NewCodecStore(filepath.Join(t.TempDir(), "codec.msgpack"))
	first, _ := features.EncodeIdentifier(features.NewCodecState(), "jockey_id", []string{"j1"})
	second, _ := features.EncodeIdentifier(first, "jockey_id", []string{"j2"})

	require.NoError(t, store.Save(CodecSnapshot{State: first}))
	require.NoError(t, store.Save(CodecSnapshot{State: second}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.State.Version)
	assert.Equal(t, []string{"j1", "j2"}, loaded.State.Fields["jockey_id"])
}

func TestFeatureTableParquetRoundTrip(t *testing.T) {
	one := 1
	date := time.Date(2023, 5, 7, 0, 0, 0, 0, time.UTC)
	table := &features.FeatureTable{
		Columns: []string{"impost", "prize_avg_all", "weather_晴"},
		Rows: []features.FeatureRow{
			{RaceID: "202305020811", HorseNumber: 1, Date: date, Label: &one, Values: []float64{55, 1200.5, 1}},
			{RaceID: "202305020811", HorseNumber: 2, Date: date, Values: []float64{57, math.NaN(), 0}},
		},
	}

	path := filepath.Join(t.TempDir(), "out", "features.parquet")
	require.NoError(t, WriteFeatureTable(path, table, DefaultParquetOptions()))

	loaded, err := ReadFeatureTable(path, DefaultParquetOptions())
	require.NoError(t, err)

	assert.Equal(t, table.Columns, loaded.Columns)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, "202305020811", loaded.Rows[0].RaceID)
	assert.True(t, date.Equal(loaded.Rows[0].Date))
	require.NotNil(t, loaded.Rows[0].Label)
	assert.Equal(t, 1, *loaded.Rows[0].Label)
	assert.Nil(t, loaded.Rows[1].Label)
	assert.Equal(t, []float64{55, 1200.5, 1}, loaded.Rows[0].Values)
	assert.True(t, math.IsNaN(loaded.Rows[1].Values[1]))
}

func TestWriteFeatureTableRejectsRaggedRows(t *testing.T) {
	table := &features.FeatureTable{
		Columns: []string{"a", "b"},
		Rows:    []features.FeatureRow{{RaceID: "r1", HorseNumber: 1, Values: []float64{1}}},
	}
	err := WriteFeatureTable(filepath.Join(t.TempDir(), "bad.parquet"), table, DefaultParquetOptions())
	assert.Error(t, err)
}
