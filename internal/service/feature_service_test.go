package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/storage"
)

func rawEntry(raceID, number, horseID, rank, date string) models.RawEntry {
	return models.RawEntry{
		RaceID:       raceID,
		HorseNumber:  number,
		FrameNumber:  "1",
		Impost:       "55",
		CourseLength: "1800",
		Weather:      "晴",
		RaceType:     "芝",
		GroundState:  "良",
		Date:         date,
		HorseID:      horseID,
		JockeyID:     "j01",
		SexAge:       "牝3",
		BodyWeight:   "452(-2)",
		FinishRank:   rank,
	}
}

type featureFixture struct {
	service *FeatureService
	entries *fakeEntryRepo
	tables  *fakeFeatureRepo
	store   *storage.CodecStore
	outDir  string
}

func newFeatureFixture(t *testing.T) *featureFixture {
	dir := t.TempDir()
	cfg := config.FeaturesConfig{
		Windows:         []string{"all"},
		NominalColumns:  []string{models.ColumnWeather},
		PedigreeColumns: 2,
		Workers:         2,
		TestFraction:    0.5,
		StartDate:       "2023-05-01",
		EndDate:         "2023-05-31",
		CodecStatePath:  filepath.Join(dir, "codec.msgpack"),
		OutputDir:       filepath.Join(dir, "features"),
		Compression:     "snappy",
	}

	prizeMoney := 500.0
	entries := &fakeEntryRepo{rows: []models.RawEntry{
		rawEntry("r1", "1", "h1", "1", "2023-05-07"),
		rawEntry("r1", "2", "h2", "6", "2023-05-07"),
		rawEntry("r2", "1", "h1", "3", "2023-05-14"),
		rawEntry("r2", "2", "h2", "2", "2023-05-14"),
		rawEntry("r3", "1", "h1", "", "2023-06-04"),
		rawEntry("r3", "2", "h3", "", "2023-06-04"),
	}}
	history := &fakeHistoryRepo{rows: []models.RawHistoricalResult{
		{HorseID: "h1", Date: "2023-04-01", FinishRank: "2", PrizeMoney: &prizeMoney},
		{HorseID: "h1", Date: "2023-05-07", FinishRank: "1", PrizeMoney: &prizeMoney},
	}}
	pedigrees := &fakePedigreeRepo{rows: []models.Pedigree{
		{HorseID: "h1", Ancestors: []string{"sire1", "dam1"}},
	}}
	tables := newFakeFeatureRepo()
	store := storage.NewCodecStore(cfg.CodecStatePath)

	return &featureFixture{
		service: NewFeatureService(cfg, entries, history, pedigrees, tables, store, quietLogger()),
		entries: entries,
		tables:  tables,
		store:   store,
		outDir:  cfg.OutputDir,
	}
}

func TestBuildLabeled(t *testing.T) {
	fx := newFeatureFixture(t)

	summary, err := fx.service.BuildLabeled(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TableLabeled, summary.Table)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, 1, summary.MissingPedigree)
	assert.Greater(t, summary.CodecVersion, 0)
	assert.Equal(t, filepath.Join(fx.outDir, "labeled.parquet"), summary.ParquetPath)
	assert.FileExists(t, summary.ParquetPath)

	stored, err := fx.tables.LoadTable(context.Background(), TableLabeled)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Len())

	snapshot, err := fx.store.Load()
	require.NoError(t, err)
	assert.Equal(t, stored.Columns, snapshot.Columns)
	assert.Equal(t, summary.CodecVersion, snapshot.State.Version)

	exported, err := storage.ReadFeatureTable(summary.ParquetPath, storage.DefaultParquetOptions())
	require.NoError(t, err)
	assert.Equal(t, stored.Columns, exported.Columns)
	assert.Equal(t, stored.Len(), exported.Len())
}

func TestBuildUnlabeledRequiresSnapshot(t *testing.T) {
	fx := newFeatureFixture(t)

	_, err := fx.service.BuildUnlabeled(context.Background(), time.Date(2023, 6, 4, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestBuildUnlabeledKeepsCodes(t *testing.T) {
	fx := newFeatureFixture(t)
	ctx := context.Background()

	_, err := fx.service.BuildLabeled(ctx)
	require.NoError(t, err)
	before, err := fx.store.Load()
	require.NoError(t, err)
	h1Code, ok := before.State.Code(features.FieldHorseID, "h1")
	require.True(t, ok)

	raceDay := time.Date(2023, 6, 4, 15, 40, 0, 0, time.UTC)
	summary, err := fx.service.BuildUnlabeled(ctx, raceDay)
	require.NoError(t, err)
	assert.Equal(t, "unlabeled-20230604", summary.Table)
	assert.Equal(t, 2, summary.Rows)

	after, err := fx.store.Load()
	require.NoError(t, err)
	code, ok := after.State.Code(features.FieldHorseID, "h1")
	require.True(t, ok)
	assert.Equal(t, h1Code, code)
	h3Code, ok := after.State.Code(features.FieldHorseID, "h3")
	require.True(t, ok)
	assert.Equal(t, before.State.Len(features.FieldHorseID), h3Code)
	assert.Greater(t, after.State.Version, before.State.Version)

	labeled, err := fx.tables.LoadTable(ctx, TableLabeled)
	require.NoError(t, err)
	unlabeled, err := fx.tables.LoadTable(ctx, summary.Table)
	require.NoError(t, err)
	assert.True(t, labeled.SameSchema(unlabeled))
	for _, row := range unlabeled.Rows {
		assert.Nil(t, row.Label)
	}
}

func TestSplit(t *testing.T) {
	fx := newFeatureFixture(t)
	ctx := context.Background()

	_, _, err := fx.service.Split(ctx, 0.5)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = fx.service.BuildLabeled(ctx)
	require.NoError(t, err)

	train, test, err := fx.service.Split(ctx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, train.Len())
	assert.Equal(t, 2, test.Len())
	for _, row := range train.Rows {
		assert.Equal(t, "r1", row.RaceID)
	}
	for _, row := range test.Rows {
		assert.Equal(t, "r2", row.RaceID)
	}

	for _, name := range []string{TableTrain, TableTest} {
		_, err := fx.tables.LoadTable(ctx, name)
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(fx.outDir, name+".parquet"))
		assert.NoError(t, err)
	}
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, uniqueStrings([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, uniqueStrings(nil))
}
