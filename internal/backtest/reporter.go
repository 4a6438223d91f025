package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yourusername/keiba-edge/internal/models"
)

// GenerateConsoleReport formats an evaluation run for terminal output
func GenerateConsoleReport(run *models.EvaluationRun, importances []models.FeatureImportance) string {
	var builder strings.Builder
	builder.WriteString("Evaluation Report\n")
	builder.WriteString("=================\n")
	builder.WriteString(fmt.Sprintf("Run: %s\n", run.ID))
	builder.WriteString(fmt.Sprintf("Bet Type: %s\n", run.Kind))
	builder.WriteString(fmt.Sprintf("Model Version: %s\n", run.ModelVersion))
	builder.WriteString(fmt.Sprintf("Standardized: %t\n", run.Standardized))
	if run.AUC != nil {
		builder.WriteString(fmt.Sprintf("AUC: %.4f\n", *run.AUC))
	}
	builder.WriteString(fmt.Sprintf("Thresholds kept: %d of %d (n_bets > %d)\n", len(run.Curve), run.SampleCount, run.MinBets))
	if best, ok := BestPoint(run.Curve); ok {
		builder.WriteString(fmt.Sprintf("Best Return Rate: %.2f%% at threshold %.2f (%d bets)\n",
			best.ReturnRate*100, best.Threshold, best.NBets))
	}

	if len(run.Curve) > 0 {
		builder.WriteString("\nthreshold  n_bets  return_rate\n")
		for _, point := range run.Curve {
			builder.WriteString(fmt.Sprintf("%9.2f  %6d  %11.4f\n", point.Threshold, point.NBets, point.ReturnRate))
		}
	}

	if len(importances) > 0 {
		builder.WriteString("\nTop Features\n")
		for _, importance := range importances {
			builder.WriteString(fmt.Sprintf("  %-24s %.4f\n", importance.Feature, importance.Importance))
		}
	}
	return builder.String()
}

// GenerateCSVExport writes the gain curve as threshold,n_bets,return_rate rows
func GenerateCSVExport(curve []models.GainPoint, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create csv export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"threshold", "n_bets", "return_rate"}); err != nil {
		return err
	}
	for _, point := range curve {
		record := []string{
			strconv.FormatFloat(point.Threshold, 'f', 4, 64),
			strconv.Itoa(point.NBets),
			strconv.FormatFloat(point.ReturnRate, 'f', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// GenerateJSONExport writes the full evaluation run as indented JSON
func GenerateJSONExport(run *models.EvaluationRun, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation run: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}
