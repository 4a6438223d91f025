// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated trail of persisted artifacts.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogCodecStateSaved logs a persisted codec state.
func (al *AuditLogger) LogCodecStateSaved(path string, version int, fieldSizes map[string]int) {
	al.WithFields(logrus.Fields{
		"event_type":    "codec_state_saved",
		"path":          path,
		"codec_version": version,
		"field_sizes":   fieldSizes,
	}).Info("Codec state saved")
}

// LogTableExported logs an exported feature table.
func (al *AuditLogger) LogTableExported(path string, rows, columns int) {
	al.WithFields(logrus.Fields{
		"event_type": "table_exported",
		"path":       path,
		"rows":       rows,
		"columns":    columns,
	}).Info("Feature table exported")
}

// LogEvaluationStored logs a persisted evaluation run.
func (al *AuditLogger) LogEvaluationStored(runID, betType string, points int) {
	al.WithFields(logrus.Fields{
		"event_type": "evaluation_stored",
		"run_id":     runID,
		"bet_type":   betType,
		"points":     points,
	}).Info("Evaluation run stored")
}
