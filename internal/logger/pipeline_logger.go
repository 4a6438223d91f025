// Package logger provides feature-pipeline logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-edge/internal/models"
)

// maxLoggedIDs caps how many horse ids are written into a single entry.
const maxLoggedIDs = 50

// PipelineLogger provides dedicated logging for feature pipeline stages.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// LogStage logs the completion of a pipeline stage.
func (pl *PipelineLogger) LogStage(stage string, rowsIn, rowsOut int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"stage":       stage,
		"rows_in":     rowsIn,
		"rows_out":    rowsOut,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}).Info("Pipeline stage completed")
}

// LogParseReport logs the outcome of a raw-table conversion.
func (pl *PipelineLogger) LogParseReport(report models.ParseReport) {
	entry := pl.WithFields(logrus.Fields{
		"source":    report.Source,
		"total":     report.Total,
		"parsed":    report.Parsed,
		"skipped":   report.Skipped,
		"skip_rate": report.SkipRate(),
		"by_code":   report.CountByCode(),
	})
	if report.Skipped > 0 {
		entry.Warn("Raw records skipped during parsing")
		return
	}
	entry.Info("Raw table parsed")
}

// LogMissingPedigree logs horses that have no pedigree row and need backfilling.
func (pl *PipelineLogger) LogMissingPedigree(horseIDs []string) {
	if len(horseIDs) == 0 {
		return
	}
	logged := horseIDs
	if len(logged) > maxLoggedIDs {
		logged = logged[:maxLoggedIDs]
	}
	pl.WithFields(logrus.Fields{
		"missing_count": len(horseIDs),
		"horse_ids":     logged,
	}).Warn("No pedigree found, pedigree scrape required")
}

// LogWindowAggregation logs one lookback window's join over all race dates.
func (pl *PipelineLogger) LogWindowAggregation(window string, dates, rowsWithHistory, rows int) {
	pl.WithFields(logrus.Fields{
		"window":            window,
		"dates":             dates,
		"rows_with_history": rowsWithHistory,
		"rows":              rows,
	}).Debug("Horse results merged")
}

// LogEncoding logs categorical encoding results.
func (pl *PipelineLogger) LogEncoding(codecVersion int, columns int, newCodes map[string]int) {
	pl.WithFields(logrus.Fields{
		"codec_version": codecVersion,
		"columns":       columns,
		"new_codes":     newCodes,
	}).Info("Categorical encoding completed")
}
