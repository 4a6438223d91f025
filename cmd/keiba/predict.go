package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-edge/internal/service"
)

var (
	predictDate string
	threshold   float64
	betOnly     bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a race day's unlabeled table and print bet decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := time.Parse("2006-01-02", predictDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		btConfig, err := evaluationConfig(cmd)
		if err != nil {
			return err
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

		decisions, err := svc.Predict(cmd.Context(), service.UnlabeledTable(date), threshold, betOnly)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-14s %6s %8s %4s\n", "race_id", "number", "score", "bet")
		for _, d := range decisions {
			fmt.Fprintf(out, "%-14s %6d %8.4f %4t\n", d.RaceID, d.HorseNumber, d.Score, d.Bet)
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictDate, "date", time.Now().UTC().Format("2006-01-02"), "Race day (YYYY-MM-DD)")
	predictCmd.Flags().Float64Var(&threshold, "threshold", 0.5, "Score threshold for placing a bet")
	predictCmd.Flags().BoolVar(&betOnly, "bet-only", false, "Only print entries that would be bet")
	predictCmd.Flags().BoolVar(&rawScores, "raw-scores", false, "Threshold raw probabilities instead of race-standardized scores")
}
