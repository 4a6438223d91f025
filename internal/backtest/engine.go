// Package backtest replays classifier decisions against historical payouts.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/logger"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/payout"
)

// baseStake is the stake that payout amounts are quoted against.
var baseStake = decimal.NewFromInt(100)

// ReturnFunc decides at threshold and settles the resulting bets.
type ReturnFunc func(threshold float64) (models.EvaluationResult, error)

// Evaluator scores feature tables and settles the resulting bets
type Evaluator struct {
	config     BacktestConfig
	classifier Classifier
	place      map[string]models.PlacePayout
	win        map[string]models.WinPayout
	logger     *logger.EvaluationLogger
}

// NewEvaluator creates an evaluator over the payouts in table
func NewEvaluator(cfg BacktestConfig, classifier Classifier, table *payout.Table, log *logrus.Logger) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if table == nil {
		return nil, fmt.Errorf("payout table is required")
	}
	if log == nil {
		log = logrus.New()
	}

	evalLogger := logger.NewEvaluationLogger(log)
	place, placeReport := table.PlaceView()
	win, winReport := table.WinView()
	for _, report := range []models.ParseReport{placeReport, winReport} {
		if len(report.Errors) > 0 {
			evalLogger.WithFields(logrus.Fields{
				"source":  report.Source,
				"total":   report.Total,
				"skipped": report.Skipped,
				"by_code": report.CountByCode(),
			}).Warn("Payout records could not be parsed")
		}
	}

	return &Evaluator{
		config:     cfg,
		classifier: classifier,
		place:      place,
		win:        win,
		logger:     evalLogger,
	}, nil
}

// Config returns the backtest configuration
func (e *Evaluator) Config() BacktestConfig {
	return e.config
}

// Score obtains positive-class probabilities for every row, standardized
// within each race when configured.
func (e *Evaluator) Score(ctx context.Context, table *features.FeatureTable) (*ScoredTable, error) {
	proba, err := e.classifier.PredictProba(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to predict probabilities: %w", err)
	}
	if len(proba) != table.Len() {
		return nil, fmt.Errorf("%w: classifier returned %d probabilities for %d rows",
			models.ErrSchemaMismatch, len(proba), table.Len())
	}

	scores := proba
	if e.config.Standardize {
		scores, err = Standardize(table.RaceIDs(), proba)
		if err != nil {
			return nil, err
		}
	}
	e.logger.LogScoring(table.Len(), e.config.Standardize, e.classifier.ModelVersion())
	return &ScoredTable{
		Table:        table,
		Scores:       scores,
		Standardized: e.config.Standardize,
		ModelVersion: e.classifier.ModelVersion(),
	}, nil
}

// Decide flags every row whose score is at least threshold. Thresholds
// outside [0, 1] are accepted and give empty or all-bet decisions.
func (e *Evaluator) Decide(scored *ScoredTable, threshold float64) []models.BetDecision {
	decisions := make([]models.BetDecision, scored.Len())
	for i, row := range scored.Table.Rows {
		decisions[i] = models.BetDecision{
			RaceID:      row.RaceID,
			HorseNumber: row.HorseNumber,
			Score:       scored.Scores[i],
			Bet:         scored.Scores[i] >= threshold,
		}
	}
	return decisions
}

// PredictTable returns the decisions at threshold, only the bets when betOnly is set.
func (e *Evaluator) PredictTable(scored *ScoredTable, threshold float64, betOnly bool) []models.BetDecision {
	decisions := e.Decide(scored, threshold)
	if !betOnly {
		return decisions
	}
	return bets(decisions)
}

// SettlePlace stakes one unit on every bet and collects the place payout of
// each bet whose horse finished in a paying slot.
func (e *Evaluator) SettlePlace(decisions []models.BetDecision) (models.EvaluationResult, error) {
	placed := bets(decisions)
	if len(placed) == 0 {
		return models.EvaluationResult{Kind: models.ReturnPlace}, models.ErrDegenerateEvaluation
	}

	recovered := decimal.Zero
	hits := 0
	for _, bet := range placed {
		amount, ok := e.place[bet.RaceID].Pays(bet.HorseNumber)
		if !ok {
			continue
		}
		hits++
		recovered = recovered.Add(decimal.NewFromInt(int64(amount)))
	}
	return e.settled(models.ReturnPlace, len(placed), hits, recovered), nil
}

// SettleWin stakes one unit on every bet and collects the win payout of each
// bet on the race winner. Unparsed win records never pay.
func (e *Evaluator) SettleWin(decisions []models.BetDecision) (models.EvaluationResult, error) {
	placed := bets(decisions)
	if len(placed) == 0 {
		return models.EvaluationResult{Kind: models.ReturnWin}, models.ErrDegenerateEvaluation
	}

	recovered := decimal.Zero
	hits := 0
	for _, bet := range placed {
		win, ok := e.win[bet.RaceID]
		if !ok || win.HorseNumber == nil || win.Amount == nil || *win.HorseNumber != bet.HorseNumber {
			continue
		}
		hits++
		recovered = recovered.Add(decimal.NewFromFloat(*win.Amount))
	}
	return e.settled(models.ReturnWin, len(placed), hits, recovered), nil
}

// SettleWinProper computes hits / (stake unit / payout sum), where the payout
// sum adds the win payout of every bet's race whether or not the bet hit.
// A zero payout sum gives a return rate of 0.
func (e *Evaluator) SettleWinProper(decisions []models.BetDecision) (models.EvaluationResult, error) {
	placed := bets(decisions)
	if len(placed) == 0 {
		return models.EvaluationResult{Kind: models.ReturnWinProper}, models.ErrDegenerateEvaluation
	}

	payoutSum := decimal.Zero
	hits := 0
	for _, bet := range placed {
		win, ok := e.win[bet.RaceID]
		if !ok {
			continue
		}
		if win.Amount != nil {
			payoutSum = payoutSum.Add(decimal.NewFromFloat(*win.Amount))
		}
		if win.HorseNumber != nil && *win.HorseNumber == bet.HorseNumber {
			hits++
		}
	}

	unit := decimal.NewFromFloat(e.config.StakeUnit)
	result := models.EvaluationResult{
		Kind:   models.ReturnWinProper,
		NBets:  len(placed),
		Hits:   hits,
		Stake:  unit.Mul(decimal.NewFromInt(int64(len(placed)))).InexactFloat64(),
		Payout: payoutSum.InexactFloat64(),
	}
	if !payoutSum.IsZero() {
		result.ReturnRate = decimal.NewFromInt(int64(hits)).Mul(payoutSum).Div(unit).InexactFloat64()
	}
	e.logger.LogSettlement(result)
	return result, nil
}

// settled builds a stake-and-recovery result. Payout amounts are quoted per
// 100 staked and scale with the stake unit.
func (e *Evaluator) settled(kind models.ReturnKind, nBets, hits int, recovered decimal.Decimal) models.EvaluationResult {
	unit := decimal.NewFromFloat(e.config.StakeUnit)
	stake := unit.Mul(decimal.NewFromInt(int64(nBets)))
	payout := recovered.Mul(unit).Div(baseStake)
	result := models.EvaluationResult{
		Kind:       kind,
		NBets:      nBets,
		Hits:       hits,
		Stake:      stake.InexactFloat64(),
		Payout:     payout.InexactFloat64(),
		ReturnRate: payout.Div(stake).InexactFloat64(),
	}
	e.logger.LogSettlement(result)
	return result
}

// Settle dispatches to the settlement formula for kind.
func (e *Evaluator) Settle(kind models.ReturnKind, decisions []models.BetDecision) (models.EvaluationResult, error) {
	switch kind {
	case models.ReturnPlace:
		return e.SettlePlace(decisions)
	case models.ReturnWin:
		return e.SettleWin(decisions)
	case models.ReturnWinProper:
		return e.SettleWinProper(decisions)
	default:
		return models.EvaluationResult{}, fmt.Errorf("%w: unknown bet type %q", models.ErrInvalidArgument, kind)
	}
}

// ReturnFunc binds scored rows and a settlement formula into a ReturnFunc.
func (e *Evaluator) ReturnFunc(kind models.ReturnKind, scored *ScoredTable) (ReturnFunc, error) {
	if _, err := models.ParseReturnKind(string(kind)); err != nil {
		return nil, err
	}
	return func(threshold float64) (models.EvaluationResult, error) {
		result, err := e.Settle(kind, e.Decide(scored, threshold))
		result.Threshold = threshold
		return result, err
	}, nil
}

// GainCurve sweeps threshold = i/sampleCount for i in [0, sampleCount) and
// keeps every point with more than minBets bets, in sweep order. Thresholds
// with no bets are skipped.
func (e *Evaluator) GainCurve(kind models.ReturnKind, fn ReturnFunc, sampleCount, minBets int) ([]models.GainPoint, error) {
	if sampleCount <= 0 {
		return nil, fmt.Errorf("%w: sample count must be positive, got %d", models.ErrInvalidArgument, sampleCount)
	}

	curve := make([]models.GainPoint, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		threshold := float64(i) / float64(sampleCount)
		result, err := fn(threshold)
		if errors.Is(err, models.ErrDegenerateEvaluation) {
			e.logger.LogDegenerateThreshold(kind, threshold)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to settle at threshold %.4f: %w", threshold, err)
		}
		if result.NBets > minBets {
			curve = append(curve, models.GainPoint{
				Threshold:  threshold,
				NBets:      result.NBets,
				ReturnRate: result.ReturnRate,
			})
		}
	}
	e.logger.LogGainCurve(kind, sampleCount, minBets, curve)
	return curve, nil
}

// Evaluate scores table once and sweeps the gain curve for kind. The run
// carries an AUC when every row is labeled and both classes occur.
func (e *Evaluator) Evaluate(ctx context.Context, table *features.FeatureTable, kind models.ReturnKind) (*models.EvaluationRun, error) {
	scored, err := e.Score(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageScored, err)
	}
	fn, err := e.ReturnFunc(kind, scored)
	if err != nil {
		return nil, err
	}
	curve, err := e.GainCurve(kind, fn, e.config.SampleCount, e.config.MinBets)
	if err != nil {
		return nil, fmt.Errorf("%s stage: %w", StageSettled, err)
	}

	run := &models.EvaluationRun{
		ID:           uuid.New(),
		Kind:         kind,
		ModelVersion: scored.ModelVersion,
		Standardized: scored.Standardized,
		SampleCount:  e.config.SampleCount,
		MinBets:      e.config.MinBets,
		Curve:        curve,
		CreatedAt:    time.Now().UTC(),
	}
	if auc, err := AUC(scored.Scores, table.Labels()); err == nil {
		run.AUC = &auc
	}
	return run, nil
}

// TopFeatures returns the n most important features, highest first.
func (e *Evaluator) TopFeatures(ctx context.Context, n int) ([]models.FeatureImportance, error) {
	importances, err := e.classifier.FeatureImportance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get feature importance: %w", err)
	}
	return TopFeatures(importances, n), nil
}

func bets(decisions []models.BetDecision) []models.BetDecision {
	placed := make([]models.BetDecision, 0, len(decisions))
	for _, decision := range decisions {
		if decision.Bet {
			placed = append(placed, decision)
		}
	}
	return placed
}
