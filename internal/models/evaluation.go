package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReturnKind names a settlement formula.
type ReturnKind string

// Supported settlement formulas. ReturnWinProper is the hit-count based win
// formula and is kept separate from ReturnWin because the two disagree.
const (
	ReturnPlace     ReturnKind = "place"
	ReturnWin       ReturnKind = "win"
	ReturnWinProper ReturnKind = "win_proper"
)

// ParseReturnKind validates a settlement formula name.
func ParseReturnKind(value string) (ReturnKind, error) {
	switch kind := ReturnKind(value); kind {
	case ReturnPlace, ReturnWin, ReturnWinProper:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown bet type %q", ErrInvalidArgument, value)
	}
}

// BetDecision is the outcome of thresholding one entry's score.
type BetDecision struct {
	RaceID      string  `json:"race_id"`
	HorseNumber int     `json:"horse_number"`
	Score       float64 `json:"score"`
	Bet         bool    `json:"bet"`
}

// EvaluationResult summarises one settlement at one threshold.
// ReturnRate 1.0 is break-even.
type EvaluationResult struct {
	Kind       ReturnKind `json:"kind"`
	Threshold  float64    `json:"threshold"`
	NBets      int        `json:"n_bets"`
	Hits       int        `json:"hits"`
	Stake      float64    `json:"stake"`
	Payout     float64    `json:"payout"`
	ReturnRate float64    `json:"return_rate"`
}

// GainPoint is one threshold of a gain-curve sweep.
type GainPoint struct {
	Threshold  float64 `json:"threshold"`
	NBets      int     `json:"n_bets"`
	ReturnRate float64 `json:"return_rate"`
}

// FeatureImportance pairs a feature column with a classifier's importance score.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// EvaluationRun is a persisted gain-curve sweep.
type EvaluationRun struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Kind         ReturnKind  `db:"kind" json:"kind"`
	ModelVersion string      `db:"model_version" json:"model_version"`
	Standardized bool        `db:"standardized" json:"standardized"`
	SampleCount  int         `db:"sample_count" json:"sample_count"`
	MinBets      int         `db:"min_bets" json:"min_bets"`
	AUC          *float64    `db:"auc" json:"auc,omitempty"`
	Curve        []GainPoint `db:"curve" json:"curve"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
