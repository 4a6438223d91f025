// Package logger provides betting-evaluation logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/models"
)

// EvaluationLogger provides dedicated logging for return simulations.
type EvaluationLogger struct {
	*logrus.Entry
}

// NewEvaluationLogger creates a new evaluation logger.
func NewEvaluationLogger(baseLogger *logrus.Logger) *EvaluationLogger {
	return &EvaluationLogger{
		Entry: baseLogger.WithField("component", "evaluation"),
	}
}

// LogSettlement logs a single settlement.
func (el *EvaluationLogger) LogSettlement(result models.EvaluationResult) {
	el.WithFields(logrus.Fields{
		"kind":        result.Kind,
		"threshold":   result.Threshold,
		"n_bets":      result.NBets,
		"hits":        result.Hits,
		"stake":       result.Stake,
		"payout":      result.Payout,
		"return_rate": result.ReturnRate,
	}).Debug("Bets settled")
}

// LogDegenerateThreshold logs a threshold at which no bets were placed.
func (el *EvaluationLogger) LogDegenerateThreshold(kind models.ReturnKind, threshold float64) {
	el.WithFields(logrus.Fields{
		"kind":      kind,
		"threshold": threshold,
	}).Debug("No bets at threshold, skipped")
}

// LogGainCurve logs a completed threshold sweep.
func (el *EvaluationLogger) LogGainCurve(kind models.ReturnKind, sampleCount, minBets int, curve []models.GainPoint) {
	fields := logrus.Fields{
		"kind":         kind,
		"sample_count": sampleCount,
		"min_bets":     minBets,
		"points":       len(curve),
	}
	if best, ok := bestPoint(curve); ok {
		fields["best_threshold"] = best.Threshold
		fields["best_return_rate"] = best.ReturnRate
		fields["best_n_bets"] = best.NBets
	}
	el.WithFields(fields).Info("Gain curve computed")
}

// LogScoring logs a classifier scoring pass.
func (el *EvaluationLogger) LogScoring(rows int, standardized bool, modelVersion string) {
	el.WithFields(logrus.Fields{
		"rows":          rows,
		"standardized":  standardized,
		"model_version": modelVersion,
	}).Info("Entries scored")
}

func bestPoint(curve []models.GainPoint) (models.GainPoint, bool) {
	if len(curve) == 0 {
		return models.GainPoint{}, false
	}
	best := curve[0]
	for _, point := range curve[1:] {
		if point.ReturnRate > best.ReturnRate {
			best = point
		}
	}
	return best, true
}
