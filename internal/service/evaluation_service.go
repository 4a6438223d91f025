package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/keiba-edge/internal/backtest"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/logger"
	"github.com/yourusername/keiba-edge/internal/metrics"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/payout"
	"github.com/yourusername/keiba-edge/internal/repository"
)

// EvaluationReport is the outcome of evaluating one stored table
type EvaluationReport struct {
	Table       string
	Runs        []*models.EvaluationRun
	Importances []models.FeatureImportance
}

// Console renders every run of the report. With dedupe set, each curve is
// reduced to one point per bet count; stored runs keep the full curve.
func (r *EvaluationReport) Console(dedupe bool) string {
	var builder strings.Builder
	for _, run := range r.Runs {
		if dedupe {
			reduced := *run
			reduced.Curve = backtest.DedupeByBets(run.Curve)
			run = &reduced
		}
		builder.WriteString(backtest.GenerateConsoleReport(run, r.Importances))
	}
	return builder.String()
}

// EvaluationService scores stored feature tables and simulates betting returns
type EvaluationService struct {
	cfg         backtest.BacktestConfig
	classifier  backtest.Classifier
	tables      repository.FeatureRepository
	payouts     repository.PayoutRepository
	evaluations repository.EvaluationRepository
	logger      *logrus.Logger
	audit       *logger.AuditLogger
}

// NewEvaluationService creates a new evaluation service
func NewEvaluationService(
	cfg backtest.BacktestConfig,
	classifier backtest.Classifier,
	tables repository.FeatureRepository,
	payouts repository.PayoutRepository,
	evaluations repository.EvaluationRepository,
	log *logrus.Logger,
) *EvaluationService {
	return &EvaluationService{
		cfg:         cfg,
		classifier:  classifier,
		tables:      tables,
		payouts:     payouts,
		evaluations: evaluations,
		logger:      log,
		audit:       logger.NewAuditLogger(log),
	}
}

// Evaluate sweeps the gain curve of every kind over the stored table name,
// persists each run and writes CSV and JSON exports under the output path
func (s *EvaluationService) Evaluate(ctx context.Context, name string, kinds []models.ReturnKind) (*EvaluationReport, error) {
	if len(kinds) == 0 {
		kinds = s.cfg.Kinds
	}

	table, err := s.tables.LoadTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s table: %w", name, err)
	}

	evaluator, err := s.newEvaluator(ctx, table)
	if err != nil {
		return nil, err
	}

	report := &EvaluationReport{Table: name}
	for _, kind := range kinds {
		run, err := s.evaluateKind(ctx, evaluator, table, kind)
		if err != nil {
			return nil, err
		}
		report.Runs = append(report.Runs, run)
	}

	if s.cfg.TopFeatures > 0 {
		importances, err := evaluator.TopFeatures(ctx, s.cfg.TopFeatures)
		if err != nil {
			s.logger.WithError(err).Warn("Feature importance unavailable")
		} else {
			report.Importances = importances
		}
	}

	return report, nil
}

// Predict scores the stored table name and returns per-entry decisions at threshold
func (s *EvaluationService) Predict(ctx context.Context, name string, threshold float64, betOnly bool) ([]models.BetDecision, error) {
	table, err := s.tables.LoadTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s table: %w", name, err)
	}

	evaluator, err := backtest.NewEvaluator(s.cfg, s.classifier, payout.NewTable(nil), s.logger)
	if err != nil {
		return nil, err
	}
	scored, err := evaluator.Score(ctx, table)
	if err != nil {
		return nil, err
	}
	return evaluator.PredictTable(scored, threshold, betOnly), nil
}

// Recent returns up to limit stored runs of kind, newest first
func (s *EvaluationService) Recent(ctx context.Context, kind models.ReturnKind, limit int) ([]*models.EvaluationRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", models.ErrInvalidArgument)
	}
	runs, err := s.evaluations.GetLatest(ctx, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s evaluations: %w", kind, err)
	}
	return runs, nil
}

func (s *EvaluationService) newEvaluator(ctx context.Context, table *features.FeatureTable) (*backtest.Evaluator, error) {
	raw, err := s.payouts.GetByRaceIDs(ctx, uniqueStrings(table.RaceIDs()))
	if err != nil {
		return nil, fmt.Errorf("failed to load payouts: %w", err)
	}
	return backtest.NewEvaluator(s.cfg, s.classifier, payout.NewTable(raw), s.logger)
}

func (s *EvaluationService) evaluateKind(ctx context.Context, evaluator *backtest.Evaluator, table *features.FeatureTable, kind models.ReturnKind) (*models.EvaluationRun, error) {
	began := time.Now()
	run, err := evaluator.Evaluate(ctx, table, kind)
	if err != nil {
		metrics.RecordEvaluationRun(string(kind), "failure", time.Since(began).Seconds())
		return nil, fmt.Errorf("failed to evaluate %s: %w", kind, err)
	}
	status := "success"
	if len(run.Curve) == 0 {
		status = "empty"
	}
	metrics.RecordEvaluationRun(string(kind), status, time.Since(began).Seconds())

	best, _ := backtest.BestPoint(run.Curve)
	metrics.UpdateGainCurve(string(kind), run.ModelVersion, len(run.Curve), best.ReturnRate)
	if run.AUC != nil {
		metrics.UpdateAUC(run.ModelVersion, *run.AUC)
	}

	if s.evaluations != nil {
		if err := s.evaluations.Save(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to store %s evaluation: %w", kind, err)
		}
		s.audit.LogEvaluationStored(run.ID.String(), string(kind), len(run.Curve))
	}

	if s.cfg.OutputPath != "" {
		base := filepath.Join(s.cfg.OutputPath, fmt.Sprintf("%s_%s", kind, run.ID))
		if err := backtest.GenerateCSVExport(run.Curve, base+".csv"); err != nil {
			return nil, err
		}
		if err := backtest.GenerateJSONExport(run, base+".json"); err != nil {
			return nil, err
		}
	}

	return run, nil
}
