package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

// PostgresPedigreeRepository implements PedigreeRepository for PostgreSQL
type PostgresPedigreeRepository struct {
	db *database.DB
}

// NewPostgresPedigreeRepository creates a new pedigree repository
func NewPostgresPedigreeRepository(db *database.DB) PedigreeRepository {
	return &PostgresPedigreeRepository{db: db}
}

// GetByHorseIDs returns the stored pedigrees of the given horses
func (r *PostgresPedigreeRepository) GetByHorseIDs(ctx context.Context, horseIDs []string) ([]models.Pedigree, error) {
	if len(horseIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT horse_id, ancestors FROM pedigrees WHERE horse_id = ANY($1) ORDER BY horse_id`, horseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query pedigrees: %w", err)
	}

	pedigrees, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Pedigree])
	if err != nil {
		return nil, fmt.Errorf("failed to scan pedigrees: %w", err)
	}

	return pedigrees, nil
}

// UpsertBatch inserts or replaces pedigrees in a single round trip
func (r *PostgresPedigreeRepository) UpsertBatch(ctx context.Context, pedigrees []models.Pedigree) error {
	if len(pedigrees) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range pedigrees {
		batch.Queue(`
			INSERT INTO pedigrees (horse_id, ancestors) VALUES ($1, $2)
			ON CONFLICT (horse_id) DO UPDATE SET ancestors = EXCLUDED.ancestors
		`, p.HorseID, p.Ancestors)
	}

	results := r.db.Conn(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for _, p := range pedigrees {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert pedigree %s: %w", p.HorseID, err)
		}
	}

	return nil
}
