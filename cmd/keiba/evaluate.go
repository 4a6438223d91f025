package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-edge/internal/backtest"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/service"
)

var (
	betTypes  []string
	tableName string
	rawScores bool
	outputDir string
	dedupe    bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Sweep betting thresholds over a stored table and report return rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		btConfig, err := evaluationConfig(cmd)
		if err != nil {
			return err
		}

		kinds := make([]models.ReturnKind, 0, len(betTypes))
		for _, value := range betTypes {
			kind, err := models.ParseReturnKind(value)
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}

		deps, err := openDependencies(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		svc, release, err := deps.evaluationService(btConfig)
		if err != nil {
			return err
		}
		defer release()

		report, err := svc.Evaluate(cmd.Context(), tableName, kinds)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Console(dedupe))
		return nil
	},
}

func evaluationConfig(cmd *cobra.Command) (backtest.BacktestConfig, error) {
	btConfig, err := backtest.FromConfig(&cfg.Backtest)
	if err != nil {
		return backtest.BacktestConfig{}, fmt.Errorf("invalid backtest config: %w", err)
	}
	if rawScores {
		btConfig.Standardize = false
	}
	if cmd.Flags().Changed("output") {
		btConfig.OutputPath = outputDir
	}
	return btConfig, nil
}

func init() {
	evaluateCmd.Flags().StringSliceVar(&betTypes, "bet-type", nil, "Bet types to settle: place, win, win_proper (default from config)")
	evaluateCmd.Flags().StringVar(&tableName, "table", service.TableTest, "Stored feature table to evaluate")
	evaluateCmd.Flags().BoolVar(&rawScores, "raw-scores", false, "Threshold raw probabilities instead of race-standardized scores")
	evaluateCmd.Flags().StringVar(&outputDir, "output", "", "Directory for CSV and JSON exports")
	evaluateCmd.Flags().BoolVar(&dedupe, "dedupe", false, "Print one curve point per bet count (the last threshold wins)")
}
