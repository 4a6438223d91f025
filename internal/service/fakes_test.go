package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeEntryRepo struct {
	rows []models.RawEntry
}

func (f *fakeEntryRepo) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.RawEntry, error) {
	var out []models.RawEntry
	for _, row := range f.rows {
		date, err := models.ParseDate(row.Date)
		if err != nil || date.Before(models.Day(start)) || date.After(models.Day(end)) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeEntryRepo) UpsertBatch(ctx context.Context, entries []models.RawEntry) error {
	f.rows = models.UpsertByRace(f.rows, entries, func(e models.RawEntry) string { return e.RaceID })
	return nil
}

type fakeHistoryRepo struct {
	rows []models.RawHistoricalResult
}

func (f *fakeHistoryRepo) GetByHorseIDs(ctx context.Context, horseIDs []string, before time.Time) ([]models.RawHistoricalResult, error) {
	wanted := make(map[string]bool, len(horseIDs))
	for _, id := range horseIDs {
		wanted[id] = true
	}
	var out []models.RawHistoricalResult
	for _, row := range f.rows {
		if wanted[row.HorseID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) ReplaceBatch(ctx context.Context, results []models.RawHistoricalResult) error {
	f.rows = append(f.rows, results...)
	return nil
}

type fakePedigreeRepo struct {
	rows []models.Pedigree
}

func (f *fakePedigreeRepo) GetByHorseIDs(ctx context.Context, horseIDs []string) ([]models.Pedigree, error) {
	return f.rows, nil
}

func (f *fakePedigreeRepo) UpsertBatch(ctx context.Context, pedigrees []models.Pedigree) error {
	f.rows = append(f.rows, pedigrees...)
	return nil
}

type fakeFeatureRepo struct {
	mu     sync.Mutex
	tables map[string]*features.FeatureTable
}

func newFakeFeatureRepo() *fakeFeatureRepo {
	return &fakeFeatureRepo{tables: map[string]*features.FeatureTable{}}
}

func (f *fakeFeatureRepo) SaveTable(ctx context.Context, name string, table *features.FeatureTable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = table
	return nil
}

func (f *fakeFeatureRepo) LoadTable(ctx context.Context, name string) (*features.FeatureTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("feature table %q: %w", name, models.ErrNotFound)
	}
	return table, nil
}

type fakePayoutRepo struct {
	rows      []models.RawPayout
	requested []string
}

func (f *fakePayoutRepo) GetByRaceIDs(ctx context.Context, raceIDs []string) ([]models.RawPayout, error) {
	f.requested = raceIDs
	return f.rows, nil
}

func (f *fakePayoutRepo) UpsertBatch(ctx context.Context, payouts []models.RawPayout) error {
	f.rows = append(f.rows, payouts...)
	return nil
}

type fakeEvaluationRepo struct {
	saved []*models.EvaluationRun
}

func (f *fakeEvaluationRepo) Save(ctx context.Context, run *models.EvaluationRun) error {
	f.saved = append(f.saved, run)
	return nil
}

func (f *fakeEvaluationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationRun, error) {
	for _, run := range f.saved {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeEvaluationRepo) GetLatest(ctx context.Context, kind models.ReturnKind, limit int) ([]*models.EvaluationRun, error) {
	var out []*models.EvaluationRun
	for i := len(f.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if f.saved[i].Kind == kind {
			out = append(out, f.saved[i])
		}
	}
	return out, nil
}

type fakeClassifier struct {
	proba       func(table *features.FeatureTable) []float64
	importances []models.FeatureImportance
	calls       int
}

func (f *fakeClassifier) PredictProba(ctx context.Context, table *features.FeatureTable) ([]float64, error) {
	f.calls++
	return f.proba(table), nil
}

func (f *fakeClassifier) FeatureImportance(ctx context.Context) ([]models.FeatureImportance, error) {
	return f.importances, nil
}

func (f *fakeClassifier) ModelVersion() string { return "fake-v1" }
