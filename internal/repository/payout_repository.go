package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/keiba-edge/internal/database"
	"github.com/yourusername/keiba-edge/internal/models"
)

// PostgresPayoutRepository implements PayoutRepository for PostgreSQL
type PostgresPayoutRepository struct {
	db *database.DB
}

// NewPostgresPayoutRepository creates a new payout repository
func NewPostgresPayoutRepository(db *database.DB) PayoutRepository {
	return &PostgresPayoutRepository{db: db}
}

// GetByRaceIDs returns the raw payout rows of the given races
func (r *PostgresPayoutRepository) GetByRaceIDs(ctx context.Context, raceIDs []string) ([]models.RawPayout, error) {
	if len(raceIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT race_id, bet_type, winners, payouts
		FROM payouts
		WHERE race_id = ANY($1)
		ORDER BY race_id, bet_type
	`, raceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}

	payouts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.RawPayout])
	if err != nil {
		return nil, fmt.Errorf("failed to scan payouts: %w", err)
	}

	return payouts, nil
}

// UpsertBatch replaces every stored row of each race present in payouts
func (r *PostgresPayoutRepository) UpsertBatch(ctx context.Context, payouts []models.RawPayout) error {
	if len(payouts) == 0 {
		return nil
	}

	raceIDs := distinct(payouts, func(p models.RawPayout) string { return p.RaceID })
	source := make([][]any, len(payouts))
	for i, p := range payouts {
		source[i] = []any{p.RaceID, p.BetType, p.Winners, p.Payouts}
	}

	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		conn := r.db.Conn(txCtx)
		if _, err := conn.Exec(txCtx, `DELETE FROM payouts WHERE race_id = ANY($1)`, raceIDs); err != nil {
			return fmt.Errorf("failed to delete replaced payouts: %w", err)
		}

		columns := []string{"race_id", "bet_type", "winners", "payouts"}
		count, err := conn.CopyFrom(txCtx, pgx.Identifier{"payouts"}, columns, pgx.CopyFromRows(source))
		if err != nil {
			return fmt.Errorf("failed to batch insert payouts: %w", err)
		}
		if count != int64(len(payouts)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(payouts))
		}
		return nil
	})
}
