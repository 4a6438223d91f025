package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-edge/internal/backtest"
	"github.com/yourusername/keiba-edge/internal/models"
	"github.com/yourusername/keiba-edge/internal/service"
)

var (
	runsBetType string
	runsLimit   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored evaluation runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := models.ParseReturnKind(runsBetType)
		if err != nil {
			return err
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

		// listing never scores rows
		svc := service.NewEvaluationService(btConfig, nil, deps.repos.Feature, deps.repos.Payout, deps.repos.Evaluation, appLog)
		runs, err := svc.Recent(cmd.Context(), kind, runsLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s  %-20s  %-12s  %6s  %8s  %8s\n", "id", "created", "model", "points", "best", "auc")
		for _, run := range runs {
			best := "-"
			if point, ok := backtest.BestPoint(run.Curve); ok {
				best = fmt.Sprintf("%.4f", point.ReturnRate)
			}
			auc := "-"
			if run.AUC != nil {
				auc = fmt.Sprintf("%.4f", *run.AUC)
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-12s  %6d  %8s  %8s\n",
				run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.ModelVersion, len(run.Curve), best, auc)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsBetType, "bet-type", string(models.ReturnPlace), "Bet type of the runs to list")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Maximum number of runs")
}
