package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/keiba-edge/internal/features"
	"github.com/yourusername/keiba-edge/internal/models"
)

// EntryRepository defines access to raw race entry rows
type EntryRepository interface {
	// GetByDateRange returns entries whose race date falls in [start, end]
	GetByDateRange(ctx context.Context, start, end time.Time) ([]models.RawEntry, error)
	// UpsertBatch replaces every stored row of each race present in entries
	UpsertBatch(ctx context.Context, entries []models.RawEntry) error
}

// HistoryRepository defines access to raw horse history rows
type HistoryRepository interface {
	// GetByHorseIDs returns history rows of the given horses dated before the cutoff
	GetByHorseIDs(ctx context.Context, horseIDs []string, before time.Time) ([]models.RawHistoricalResult, error)
	// ReplaceBatch replaces the stored history of every horse present in results
	ReplaceBatch(ctx context.Context, results []models.RawHistoricalResult) error
}

// PedigreeRepository defines access to pedigree rows
type PedigreeRepository interface {
	GetByHorseIDs(ctx context.Context, horseIDs []string) ([]models.Pedigree, error)
	UpsertBatch(ctx context.Context, pedigrees []models.Pedigree) error
}

// PayoutRepository defines access to raw payout rows
type PayoutRepository interface {
	GetByRaceIDs(ctx context.Context, raceIDs []string) ([]models.RawPayout, error)
	// UpsertBatch replaces every stored row of each race present in payouts
	UpsertBatch(ctx context.Context, payouts []models.RawPayout) error
}

// FeatureRepository defines persistence of named feature tables
type FeatureRepository interface {
	// SaveTable replaces the table stored under name
	SaveTable(ctx context.Context, name string, table *features.FeatureTable) error
	// LoadTable returns models.ErrNotFound when no table is stored under name
	LoadTable(ctx context.Context, name string) (*features.FeatureTable, error)
}

// EvaluationRepository defines persistence of gain-curve runs
type EvaluationRepository interface {
	Save(ctx context.Context, run *models.EvaluationRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.EvaluationRun, error)
	GetLatest(ctx context.Context, kind models.ReturnKind, limit int) ([]*models.EvaluationRun, error)
}
