package backtest

import (
	"fmt"

	"github.com/yourusername/keiba-edge/internal/config"
	"github.com/yourusername/keiba-edge/internal/models"
)

// BacktestConfig holds return-simulation settings
type BacktestConfig struct {
	Standardize bool
	SampleCount int
	MinBets     int
	StakeUnit   float64
	Kinds       []models.ReturnKind
	TopFeatures int
	OutputPath  string
}

// DefaultConfig mirrors the usual 100-yen, 100-step sweep.
func DefaultConfig() BacktestConfig {
	return BacktestConfig{
		Standardize: true,
		SampleCount: 100,
		MinBets:     50,
		StakeUnit:   100,
		Kinds:       []models.ReturnKind{models.ReturnPlace},
		TopFeatures: 20,
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("backtest config is required")
	}
	kinds := make([]models.ReturnKind, 0, len(cfg.BetTypes))
	for _, value := range cfg.BetTypes {
		kind, err := models.ParseReturnKind(value)
		if err != nil {
			return BacktestConfig{}, err
		}
		kinds = append(kinds, kind)
	}

	bt := BacktestConfig{
		Standardize: cfg.Standardize,
		SampleCount: cfg.SampleCount,
		MinBets:     cfg.MinBets,
		StakeUnit:   cfg.StakeUnit,
		Kinds:       kinds,
		TopFeatures: cfg.TopFeatures,
		OutputPath:  cfg.OutputPath,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	if b.SampleCount <= 0 {
		return fmt.Errorf("sample count must be positive")
	}
	if b.MinBets < 0 {
		return fmt.Errorf("min bets cannot be negative")
	}
	if b.StakeUnit <= 0 {
		return fmt.Errorf("stake unit must be positive")
	}
	if b.TopFeatures < 0 {
		return fmt.Errorf("top features cannot be negative")
	}
	if len(b.Kinds) == 0 {
		return fmt.Errorf("at least one bet type is required")
	}
	return nil
}
