// Package datasource reads the raw tables delivered by the scraping
// collaborator and imports them into the repositories.
package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/keiba-edge/internal/models"
)

// Source delivers one batch of raw tables
type Source interface {
	// Fetch reads every table the source holds
	Fetch(ctx context.Context) (*Bundle, error)

	// Name returns the name of the source
	Name() string
}

// Bundle is one delivery of raw tables. Any table may be empty.
type Bundle struct {
	Entries   []models.RawEntry            `json:"entries"`
	History   []models.RawHistoricalResult `json:"history"`
	Pedigrees []models.Pedigree            `json:"pedigrees"`
	Payouts   []models.RawPayout           `json:"payouts"`
}

// Empty reports whether the bundle holds no rows at all
func (b *Bundle) Empty() bool {
	return len(b.Entries) == 0 && len(b.History) == 0 && len(b.Pedigrees) == 0 && len(b.Payouts) == 0
}

// SourceError represents errors from source operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "decode_failed")
	Message string // Error message
	Err     error  // Underlying error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeDecodeFailed    = "decode_failed"
	ErrCodeUnsupportedType = "unsupported_type"
)

// Validation error codes recorded in import reports
const (
	CodeMissingKey   = "missing_key"
	CodeDuplicateKey = "duplicate_key"
)

// ErrNoData is returned when a source holds no table at all
var ErrNoData = errors.New("no raw tables found")
