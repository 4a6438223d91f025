// Package repository provides PostgreSQL access to the raw race tables,
// stored feature tables and evaluation runs.
package repository

import (
	"fmt"

	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

// Repositories holds all repository implementations
type Repositories struct {
	Entry      EntryRepository
	History    HistoryRepository
	Pedigree   PedigreeRepository
	Payout     PayoutRepository
	Feature    FeatureRepository
	Evaluation EvaluationRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Entry:      NewPostgresEntryRepository(db),
		History:    NewPostgresHistoryRepository(db),
		Pedigree:   NewPostgresPedigreeRepository(db),
		Payout:     NewPostgresPayoutRepository(db),
		Feature:    NewPostgresFeatureRepository(db),
		Evaluation: NewPostgresEvaluationRepository(db),
	}, nil
}

// distinct returns the unique values of key over rows in first-seen order
func distinct[T any](rows []T, key func(T) string) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// raceDate returns the parsed race date of a raw row, or nil when it is unparsable.
// Such rows are still stored; normalization reports them.
func raceDate(value string) any {
	t, err := models.ParseDate(value)
	if err != nil {
		return nil
	}
	return t
}
