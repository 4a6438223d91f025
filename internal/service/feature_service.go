// Package service orchestrates feature builds and evaluations over the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/logger"
	"github.com/yourusername/keiba-edge/internal/metrics"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/repository"
	"github.com/yourusername/keiba-edge/internal/storage"
)

// Stored feature table names
const (
	TableLabeled = "labeled"
	TableTrain   = "train"
	TableTest    = "test"
)

// UnlabeledTable names the stored table of a race day's upcoming entries
func UnlabeledTable(date time.Time) string {
	return "unlabeled-" + date.Format("20060102")
}

// BuildSummary describes a finished feature build
type BuildSummary struct {
	Table           string
	Rows            int
	Columns         int
	CodecVersion    int
	EntryReport     models.ParseReport
	HistoryReport   models.ParseReport
	MissingPedigree int
	ParquetPath     string
}

// FeatureService loads raw tables, runs the feature pipeline and stores its outputs
type FeatureService struct {
	cfg        config.FeaturesConfig
	entries    repository.EntryRepository
	history    repository.HistoryRepository
	pedigrees  repository.PedigreeRepository
	tables     repository.FeatureRepository
	codecStore *storage.CodecStore
	logger     *logrus.Logger
	audit      *logger.AuditLogger
}

// NewFeatureService creates a new feature service
func NewFeatureService(
	cfg config.FeaturesConfig,
	entries repository.EntryRepository,
	history repository.HistoryRepository,
	pedigrees repository.PedigreeRepository,
	tables repository.FeatureRepository,
	codecStore *storage.CodecStore,
	log *logrus.Logger,
) *FeatureService {
	return &FeatureService{
		cfg:        cfg,
		entries:    entries,
		history:    history,
		pedigrees:  pedigrees,
		tables:     tables,
		codecStore: codecStore,
		logger:     log,
		audit:      logger.NewAuditLogger(log),
	}
}

// BuildLabeled builds the reference table from the finished races of the configured date range.
// Codes already in the codec snapshot are kept; the one-hot vocabulary is rebuilt from the batch.
func (s *FeatureService) BuildLabeled(ctx context.Context) (*BuildSummary, error) {
	start, end, err := s.cfg.DateRange()
	if err != nil {
		return nil, err
	}

	snapshot, found, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	if !found {
		snapshot = storage.CodecSnapshot{State: features.NewCodecState()}
	}

	return s.build(ctx, features.ModeLabeled, TableLabeled, start, end, snapshot.State, nil, nil)
}

// BuildUnlabeled builds the table of a race day's upcoming entries, encoded exactly like
// the reference table. The codec snapshot of a labeled build must exist.
func (s *FeatureService) BuildUnlabeled(ctx context.Context, date time.Time) (*BuildSummary, error) {
	snapshot, found, err := s.loadSnapshot()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("codec snapshot %s: %w; run a labeled build first", s.codecStore.Path(), models.ErrNotFound)
	}

	day := models.Day(date)
	return s.build(ctx, features.ModeUnlabeled, UnlabeledTable(day), day, day, snapshot.State, snapshot.Vocabularies, snapshot.Columns)
}

func (s *FeatureService) build(
	ctx context.Context,
	mode features.Mode,
	name string,
	start, end time.Time,
	state features.CodecState,
	vocabs []features.Vocabulary,
	columns []string,
) (summary *BuildSummary, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.RecordPipelineRun(mode.String(), status)
	}()

	pipelineCfg, err := features.FromConfig(&s.cfg, mode)
	if err != nil {
		return nil, fmt.Errorf("invalid features config: %w", err)
	}
	pipeline, err := features.NewPipeline(pipelineCfg, s.logger)
	if err != nil {
		return nil, err
	}

	inputs, err := s.loadInputs(ctx, start, end)
	if err != nil {
		return nil, err
	}
	inputs.Vocabularies = vocabs

	began := time.Now()
	result, err := pipeline.Build(ctx, inputs, state)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s features: %w", mode, err)
	}
	metrics.RecordStage("build", result.Table.Len(), time.Since(began).Seconds())

	if columns != nil && !slices.Equal(columns, result.Table.Columns) {
		return nil, fmt.Errorf("%w: %s table has %d columns, snapshot has %d",
			models.ErrSchemaMismatch, name, len(result.Table.Columns), len(columns))
	}

	for _, report := range []models.ParseReport{result.EntryReport, result.HistoryReport} {
		metrics.RecordParseSkips(report.Source, report.CountByCode())
	}
	metrics.RecordMissingPedigree(len(result.MissingPedigree))
	metrics.RecordCodecState(result.State.Version, codeGrowth(state, result.State))
	metrics.UpdateFeatureColumns(len(result.Table.Columns))

	if err := s.saveSnapshot(result); err != nil {
		return nil, err
	}

	parquetPath, err := s.store(ctx, name, result.Table)
	if err != nil {
		return nil, err
	}

	return &BuildSummary{
		Table:           name,
		Rows:            result.Table.Len(),
		Columns:         len(result.Table.Columns),
		CodecVersion:    result.State.Version,
		EntryReport:     result.EntryReport,
		HistoryReport:   result.HistoryReport,
		MissingPedigree: len(result.MissingPedigree),
		ParquetPath:     parquetPath,
	}, nil
}

// loadInputs reads the entries of [start, end] and the history and pedigree of their horses
func (s *FeatureService) loadInputs(ctx context.Context, start, end time.Time) (features.Inputs, error) {
	entries, err := s.entries.GetByDateRange(ctx, start, end)
	if err != nil {
		return features.Inputs{}, fmt.Errorf("failed to load race entries: %w", err)
	}

	horseIDs := horseIDsOf(entries)
	history, err := s.history.GetByHorseIDs(ctx, horseIDs, models.Day(end).AddDate(0, 0, 1))
	if err != nil {
		return features.Inputs{}, fmt.Errorf("failed to load horse history: %w", err)
	}

	pedigrees, err := s.pedigrees.GetByHorseIDs(ctx, horseIDs)
	if err != nil {
		return features.Inputs{}, fmt.Errorf("failed to load pedigrees: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"entries":   len(entries),
		"horses":    len(horseIDs),
		"history":   len(history),
		"pedigrees": len(pedigrees),
		"start":     start.Format("2006-01-02"),
		"end":       end.Format("2006-01-02"),
	}).Info("Loaded raw tables")

	return features.Inputs{Entries: entries, History: history, Pedigrees: pedigrees}, nil
}

// Split divides the stored labeled table chronologically into train and test tables
func (s *FeatureService) Split(ctx context.Context, testFraction float64) (train, test *features.FeatureTable, err error) {
	table, err := s.tables.LoadTable(ctx, TableLabeled)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load labeled table: %w", err)
	}

	train, test, err = features.TemporalSplit(table, testFraction)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.store(ctx, TableTrain, train); err != nil {
		return nil, nil, err
	}
	if _, err := s.store(ctx, TableTest, test); err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"train_rows":    train.Len(),
		"test_rows":     test.Len(),
		"test_fraction": testFraction,
	}).Info("Split labeled table")

	return train, test, nil
}

func (s *FeatureService) loadSnapshot() (storage.CodecSnapshot, bool, error) {
	snapshot, err := s.codecStore.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return storage.CodecSnapshot{}, false, nil
	}
	if err != nil {
		return storage.CodecSnapshot{}, false, fmt.Errorf("failed to load codec snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (s *FeatureService) saveSnapshot(result *features.Result) error {
	snapshot := storage.CodecSnapshot{
		State:        result.State,
		Vocabularies: result.Vocabularies,
		Columns:      result.Table.Columns,
	}
	if err := s.codecStore.Save(snapshot); err != nil {
		return fmt.Errorf("failed to save codec snapshot: %w", err)
	}

	sizes := make(map[string]int, len(result.State.Fields))
	for field := range result.State.Fields {
		sizes[field] = result.State.Len(field)
	}
	s.audit.LogCodecStateSaved(s.codecStore.Path(), result.State.Version, sizes)
	return nil
}

// store saves table to the repository and exports it as parquet
func (s *FeatureService) store(ctx context.Context, name string, table *features.FeatureTable) (string, error) {
	if err := s.tables.SaveTable(ctx, name, table); err != nil {
		return "", fmt.Errorf("failed to store %s table: %w", name, err)
	}

	path := filepath.Join(s.cfg.OutputDir, name+".parquet")
	opts := storage.DefaultParquetOptions()
	if s.cfg.Compression != "" {
		opts.Compression = s.cfg.Compression
	}
	if err := storage.WriteFeatureTable(path, table, opts); err != nil {
		return "", fmt.Errorf("failed to export %s table: %w", name, err)
	}

	s.audit.LogTableExported(path, table.Len(), len(table.Columns))
	return path, nil
}

func horseIDsOf(entries []models.RawEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.HorseID != "" {
			ids = append(ids, e.HorseID)
		}
	}
	return uniqueStrings(ids)
}

// uniqueStrings returns values without duplicates in first-seen order
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func codeGrowth(before, after features.CodecState) map[string]int {
	growth := make(map[string]int)
	for field := range after.Fields {
		if n := after.Len(field) - before.Len(field); n > 0 {
			growth[field] = n
		}
	}
	return growth
}
