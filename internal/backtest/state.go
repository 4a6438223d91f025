package backtest

import (
	"github.com/yourusername/keiba-edge/internal/features"
)

// Stage is a step of one evaluation. Each stage is recomputed from the
// inputs; nothing is retried.
type Stage int

// Evaluation stages, in order.
const (
	StageInput Stage = iota
	StageScored
	StageDecided
	StageSettled
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageScored:
		return "scored"
	case StageDecided:
		return "decided"
	case StageSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// ScoredTable pairs a feature table with one score per row.
type ScoredTable struct {
	Table        *features.FeatureTable
	Scores       []float64
	Standardized bool
	ModelVersion string
}

// Len returns the number of scored rows.
func (s *ScoredTable) Len() int {
	return len(s.Scores)
}
